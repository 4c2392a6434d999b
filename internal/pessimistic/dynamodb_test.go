package pessimistic

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/savaki/ddb/v2"
	"github.com/savaki/ddb/v2/ddbtest"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"

	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/dblock"
)

type Data struct {
	Repo *DynamoDBRepository
}

func setup(t *testing.T) (ctx context.Context, data Data, cleanup func()) {
	ctx = context.Background()

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion("us-west-2"),
		config.WithBaseEndpoint("http://localhost:8000"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("blah", "blah", ""),
		),
	)
	assert.NoError(t, err)

	var (
		client    = dynamodb.NewFromConfig(cfg)
		db        = ddb.New(client)
		tableName = fmt.Sprintf("pessimistic-payment-intents-test-%v", ksuid.New().String())
		table     = db.MustTable(tableName, paymentIntentDTO{})
		repo      = NewDynamoDBRepository(client, tableName)
	)

	err = table.CreateTableIfNotExists(ctx)
	assert.NoError(t, err)

	return ctx, Data{Repo: repo}, func() {
		_ = table.DeleteTableIfExists(ctx)
	}
}

func TestDynamoDBRepository(t *testing.T) {
	ddbtest.WithTable[Data](t, setup, func(t *testing.T, ctx context.Context, data Data) {
		repo := data.Repo

		t.Run("CreateAndGet", func(t *testing.T) {
			paymentIntent := Create("cus_123", 1000, "EUR")

			err := repo.Create(ctx, paymentIntent)
			assert.NoError(t, err)

			got, err := repo.Get(ctx, paymentIntent.ID)
			assert.NoError(t, err)
			assert.Equal(t, paymentIntent, got)
		})

		t.Run("Create_IdentifierCollision", func(t *testing.T) {
			paymentIntent := Create("cus_123", 1000, "EUR")
			assert.NoError(t, repo.Create(ctx, paymentIntent))

			duplicate := Create("cus_456", 2000, "USD")
			duplicate.ID = paymentIntent.ID

			err := repo.Create(ctx, duplicate)

			var collisionErr *IdentifierCollisionError
			assert.ErrorAs(t, err, &collisionErr)
			assert.Equal(t, paymentIntent.ID, collisionErr.ID)
		})

		t.Run("Get_NotFound", func(t *testing.T) {
			_, err := repo.Get(ctx, "pi_missing")

			var notFoundErr *NotFoundError
			assert.ErrorAs(t, err, &notFoundErr)
			assert.Equal(t, "pi_missing", notFoundErr.ID)
		})

		t.Run("Update_ChargeRoundTrip", func(t *testing.T) {
			paymentIntent := Create("cus_123", 1000, "EUR")
			assert.NoError(t, repo.Create(ctx, paymentIntent))

			paymentIntent.State = StateChargeFailed
			paymentIntent.Charge = &Charge{
				ID:           "ch_123",
				ErrorCode:    aws.String("card_declined"),
				ErrorMessage: aws.String("Card declined"),
			}
			assert.NoError(t, repo.Update(ctx, paymentIntent))

			got, err := repo.Get(ctx, paymentIntent.ID)
			assert.NoError(t, err)
			assert.Equal(t, paymentIntent, got)
		})

		t.Run("Update_NotFound", func(t *testing.T) {
			paymentIntent := Create("cus_123", 1000, "EUR")

			err := repo.Update(ctx, paymentIntent)

			var notFoundErr *NotFoundError
			assert.ErrorAs(t, err, &notFoundErr)
			assert.Equal(t, paymentIntent.ID, notFoundErr.ID)
		})

		t.Run("Update_KeepsHeldLock", func(t *testing.T) {
			paymentIntent := Create("cus_123", 1000, "EUR")
			assert.NoError(t, repo.Create(ctx, paymentIntent))

			err := repo.WithLock(ctx, paymentIntent.ID, func(ctx context.Context) error {
				paymentIntent.State = StateCharged
				paymentIntent.Charge = &Charge{ID: "ch_123"}
				if err := repo.Update(ctx, paymentIntent); err != nil {
					return err
				}

				// The partial update must not clobber the lock attribute.
				item, err := repo.store.Get(ctx, paymentIntentKey(paymentIntent.ID), true)
				assert.NoError(t, err)
				assert.Contains(t, item, dblock.DefaultLockAttribute)
				return nil
			})
			assert.NoError(t, err)

			item, err := repo.store.Get(ctx, paymentIntentKey(paymentIntent.ID), true)
			assert.NoError(t, err)
			assert.NotContains(t, item, dblock.DefaultLockAttribute)
		})

		t.Run("WithLock_FailsFastWhenHeld", func(t *testing.T) {
			paymentIntent := Create("cus_123", 1000, "EUR")
			assert.NoError(t, repo.Create(ctx, paymentIntent))

			err := repo.WithLock(ctx, paymentIntent.ID, func(ctx context.Context) error {
				err := repo.WithLock(ctx, paymentIntent.ID, func(ctx context.Context) error {
					t.Fatal("contending holder must not enter the critical section")
					return nil
				})

				var acquisitionErr *dblock.LockAcquisitionError
				assert.ErrorAs(t, err, &acquisitionErr)
				return nil
			})
			assert.NoError(t, err)
		})

		t.Run("WithLock_MissingIntent", func(t *testing.T) {
			err := repo.WithLock(ctx, "pi_missing", func(ctx context.Context) error {
				t.Fatal("body must not run without the lock")
				return nil
			})

			var acquisitionErr *dblock.LockAcquisitionError
			assert.ErrorAs(t, err, &acquisitionErr)
		})
	})
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "pessimistic-payment-intents-dev", TableName("dev"))
	assert.Equal(t, "pessimistic-payment-intents-prod", TableName("prod"))
}
