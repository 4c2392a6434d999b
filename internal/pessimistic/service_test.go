package pessimistic

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/savaki/ddb/v2/ddbtest"
	"github.com/stretchr/testify/assert"

	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/dblock"
)

func TestService(t *testing.T) {
	ddbtest.WithTable[Data](t, setup, func(t *testing.T, ctx context.Context, data Data) {
		t.Run("ChargePaymentIntent", func(t *testing.T) {
			gateway := &fakeGateway{response: &ChargeResponse{ID: "ch_123"}}
			service := NewService(data.Repo, gateway)

			created, err := service.CreatePaymentIntent(ctx, "cus_123", 1000, "EUR")
			assert.NoError(t, err)
			assert.Equal(t, StateCreated, created.State)

			charged, err := service.ChargePaymentIntent(ctx, created.ID)
			assert.NoError(t, err)
			assert.Equal(t, StateCharged, charged.State)
			assert.Equal(t, &Charge{ID: "ch_123"}, charged.Charge)
			assert.Equal(t, 1, gateway.callCount())

			got, err := service.GetPaymentIntent(ctx, created.ID)
			assert.NoError(t, err)
			assert.Equal(t, StateCharged, got.State)
			assert.Equal(t, &Charge{ID: "ch_123"}, got.Charge)
		})

		t.Run("ChargePaymentIntent_Rejected", func(t *testing.T) {
			gateway := &fakeGateway{response: &ChargeResponse{
				ID:           "ch_123",
				ErrorCode:    aws.String("card_declined"),
				ErrorMessage: aws.String("Card declined"),
			}}
			service := NewService(data.Repo, gateway)

			created, err := service.CreatePaymentIntent(ctx, "cus_123", 1000, "EUR")
			assert.NoError(t, err)

			failed, err := service.ChargePaymentIntent(ctx, created.ID)
			assert.NoError(t, err)
			assert.Equal(t, StateChargeFailed, failed.State)
			assert.Equal(t, aws.String("card_declined"), failed.Charge.ErrorCode)
		})

		t.Run("ChargePaymentIntent_AtMostOnce", func(t *testing.T) {
			gateway := &fakeGateway{}
			service := NewService(data.Repo, gateway)

			created, err := service.CreatePaymentIntent(ctx, "cus_123", 1000, "EUR")
			assert.NoError(t, err)

			_, err = service.ChargePaymentIntent(ctx, created.ID)
			assert.NoError(t, err)

			_, err = service.ChargePaymentIntent(ctx, created.ID)

			var stateErr *StateError
			assert.ErrorAs(t, err, &stateErr)
			assert.Equal(t, StateCharged, stateErr.State)
			assert.Equal(t, 1, gateway.callCount())
		})

		t.Run("ChargePaymentIntent_GatewayTransportError", func(t *testing.T) {
			gatewayErr := errors.New("gateway unreachable")
			gateway := &fakeGateway{err: gatewayErr}
			service := NewService(data.Repo, gateway)

			created, err := service.CreatePaymentIntent(ctx, "cus_123", 1000, "EUR")
			assert.NoError(t, err)

			_, err = service.ChargePaymentIntent(ctx, created.ID)
			assert.ErrorIs(t, err, gatewayErr)

			// The CREATED state survives and the lock was released, so the
			// charge can be retried.
			got, err := service.GetPaymentIntent(ctx, created.ID)
			assert.NoError(t, err)
			assert.Equal(t, StateCreated, got.State)

			gateway.err = nil
			charged, err := service.ChargePaymentIntent(ctx, created.ID)
			assert.NoError(t, err)
			assert.Equal(t, StateCharged, charged.State)
		})

		t.Run("ChargePaymentIntent_NotFound", func(t *testing.T) {
			service := NewService(data.Repo, &fakeGateway{})

			_, err := service.ChargePaymentIntent(ctx, "pi_missing")

			var acquisitionErr *dblock.LockAcquisitionError
			assert.ErrorAs(t, err, &acquisitionErr)
		})

		t.Run("ConcurrentChargers", func(t *testing.T) {
			gateway := &fakeGateway{response: &ChargeResponse{ID: "ch_123"}}
			service := NewService(data.Repo, gateway)

			created, err := service.CreatePaymentIntent(ctx, "cus_123", 1000, "EUR")
			assert.NoError(t, err)

			const chargers = 8
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
			)
			for i := 0; i < chargers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := service.ChargePaymentIntent(ctx, created.ID)
					if err == nil {
						mu.Lock()
						successes++
						mu.Unlock()
						return
					}

					// A loser either failed to take the lock or found the
					// charge already done.
					var (
						acquisitionErr *dblock.LockAcquisitionError
						stateErr       *StateError
					)
					assert.True(t, errors.As(err, &acquisitionErr) || errors.As(err, &stateErr), err.Error())
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, successes)
			assert.Equal(t, 1, gateway.callCount())

			got, err := service.GetPaymentIntent(ctx, created.ID)
			assert.NoError(t, err)
			assert.Equal(t, StateCharged, got.State)
		})
	})
}
