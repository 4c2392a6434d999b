package pessimistic

import "context"

// ChargeResponse is the gateway's verdict on a charge attempt. ErrorCode and
// ErrorMessage are set only on rejected charges; a transport failure is an
// error return instead.
type ChargeResponse struct {
	ID           string
	ErrorCode    *string
	ErrorMessage *string
}

// PaymentGateway is the external charging capability. Implementations live
// outside this module; tests substitute fakes.
type PaymentGateway interface {
	Charge(ctx context.Context, paymentIntentID string, amount int64, currency string) (*ChargeResponse, error)
}
