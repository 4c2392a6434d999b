package pessimistic

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
)

// fakeGateway counts charge attempts so tests can assert the external side
// effect happened exactly once.
type fakeGateway struct {
	mu       sync.Mutex
	calls    int
	response *ChargeResponse
	err      error
}

func (g *fakeGateway) Charge(_ context.Context, paymentIntentID string, _ int64, _ string) (*ChargeResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if g.response != nil {
		return g.response, nil
	}
	return &ChargeResponse{ID: "ch_" + paymentIntentID}, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestCreate(t *testing.T) {
	paymentIntent := Create("cus_123", 1000, "EUR")

	assert.True(t, strings.HasPrefix(paymentIntent.ID, "pi_"))
	assert.Equal(t, StateCreated, paymentIntent.State)
	assert.Equal(t, "cus_123", paymentIntent.CustomerID)
	assert.Equal(t, int64(1000), paymentIntent.Amount)
	assert.Equal(t, "EUR", paymentIntent.Currency)
	assert.Nil(t, paymentIntent.Charge)
}

func TestChangeAmount(t *testing.T) {
	t.Run("changes amount while created", func(t *testing.T) {
		paymentIntent := Create("cus_123", 1000, "EUR")

		err := paymentIntent.ChangeAmount(1500)
		assert.NoError(t, err)
		assert.Equal(t, int64(1500), paymentIntent.Amount)
	})

	t.Run("rejected after charge", func(t *testing.T) {
		ctx := context.Background()
		paymentIntent := Create("cus_123", 1000, "EUR")
		assert.NoError(t, paymentIntent.ExecuteCharge(ctx, &fakeGateway{}))

		err := paymentIntent.ChangeAmount(1500)

		var stateErr *StateError
		assert.ErrorAs(t, err, &stateErr)
		assert.Equal(t, StateCharged, stateErr.State)
		assert.Equal(t, int64(1000), paymentIntent.Amount)
	})
}

func TestExecuteCharge(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted charge", func(t *testing.T) {
		paymentIntent := Create("cus_123", 1000, "EUR")
		gateway := &fakeGateway{response: &ChargeResponse{ID: "ch_123"}}

		err := paymentIntent.ExecuteCharge(ctx, gateway)
		assert.NoError(t, err)
		assert.Equal(t, StateCharged, paymentIntent.State)
		assert.Equal(t, &Charge{ID: "ch_123"}, paymentIntent.Charge)
		assert.Equal(t, 1, gateway.callCount())
	})

	t.Run("rejected charge", func(t *testing.T) {
		paymentIntent := Create("cus_123", 1000, "EUR")
		gateway := &fakeGateway{response: &ChargeResponse{
			ID:           "ch_123",
			ErrorCode:    aws.String("card_declined"),
			ErrorMessage: aws.String("Card declined"),
		}}

		err := paymentIntent.ExecuteCharge(ctx, gateway)
		assert.NoError(t, err)
		assert.Equal(t, StateChargeFailed, paymentIntent.State)
		assert.Equal(t, &Charge{
			ID:           "ch_123",
			ErrorCode:    aws.String("card_declined"),
			ErrorMessage: aws.String("Card declined"),
		}, paymentIntent.Charge)
	})

	t.Run("transport error leaves the intent untouched", func(t *testing.T) {
		paymentIntent := Create("cus_123", 1000, "EUR")
		gatewayErr := errors.New("gateway unreachable")
		gateway := &fakeGateway{err: gatewayErr}

		err := paymentIntent.ExecuteCharge(ctx, gateway)
		assert.ErrorIs(t, err, gatewayErr)
		assert.Equal(t, StateCreated, paymentIntent.State)
		assert.Nil(t, paymentIntent.Charge)
	})

	t.Run("terminal states reject another charge", func(t *testing.T) {
		paymentIntent := Create("cus_123", 1000, "EUR")
		gateway := &fakeGateway{}
		assert.NoError(t, paymentIntent.ExecuteCharge(ctx, gateway))

		err := paymentIntent.ExecuteCharge(ctx, gateway)

		var stateErr *StateError
		assert.ErrorAs(t, err, &stateErr)
		assert.Equal(t, StateCharged, stateErr.State)
		assert.Equal(t, 1, gateway.callCount())
	})
}
