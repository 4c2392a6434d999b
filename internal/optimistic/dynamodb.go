package optimistic

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
	"github.com/savaki/gox/slicex"

	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/dynamo"
	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/events"
)

// TableName derives the payment intents table name from the environment.
func TableName(env string) string {
	return fmt.Sprintf("payment-intents-%s", env)
}

// DynamoDBRepository is the Repository implementation over a single DynamoDB
// table. It is stateless aside from the store reference and safe for
// concurrent use.
type DynamoDBRepository struct {
	store *dynamo.Store
}

var _ Repository = (*DynamoDBRepository)(nil)

// NewDynamoDBRepository creates a repository over the given table.
func NewDynamoDBRepository(client *dynamodb.Client, tableName string) *DynamoDBRepository {
	return &DynamoDBRepository{
		store: dynamo.New(client, tableName),
	}
}

// Get loads the aggregate with a strongly consistent read. Eventually
// consistent reads are off the table here: a stale read would turn every
// following Update into a spurious OptimisticLockError.
func (r *DynamoDBRepository) Get(ctx context.Context, id string) (*PaymentIntent, error) {
	item, err := r.store.Get(ctx, paymentIntentKey(id), true)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	if item == nil {
		return nil, &NotFoundError{ID: id}
	}

	var dto paymentIntentDTO
	if err := attributevalue.UnmarshalMap(item, &dto); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}
	return dto.toEntity()
}

// Create writes the aggregate record conditional on its id being absent.
func (r *DynamoDBRepository) Create(ctx context.Context, paymentIntent *PaymentIntent) error {
	dto, err := newPaymentIntentDTO(paymentIntent)
	if err != nil {
		return err
	}
	item, err := dto.createItem()
	if err != nil {
		return fmt.Errorf("failed to marshal payment intent: %w", err)
	}

	err = r.store.Put(ctx, &dynamodb.PutItemInput{
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(Id)"),
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return &IdentifierCollisionError{ID: paymentIntent.ID}
		}
		return fmt.Errorf("failed to create payment intent: %w", err)
	}
	return nil
}

// Update commits the aggregate write and the pending event inserts as one
// TransactWriteItems call. The aggregate update holds index 0; event puts
// follow in emission order, so cancellation reasons map back per index.
func (r *DynamoDBRepository) Update(ctx context.Context, paymentIntent *PaymentIntent) error {
	dto, err := newPaymentIntentDTO(paymentIntent)
	if err != nil {
		return err
	}

	items := make([]dynamodbtypes.TransactWriteItem, 0, len(paymentIntent.Events)+1)
	items = append(items, dto.updateTransactItem())
	for _, event := range paymentIntent.Events {
		envelope, err := events.Wrap(AggregateName, event)
		if err != nil {
			return fmt.Errorf("failed to wrap event %s: %w", event.EventID(), err)
		}
		item, err := newPaymentIntentEventDTO(envelope).createTransactItem()
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventID(), err)
		}
		items = append(items, item)
	}

	if err := r.store.TransactWrite(ctx, items...); err != nil {
		return r.mapCancellation(paymentIntent, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("payment_intent_id", paymentIntent.ID).
		Int64("version", paymentIntent.Version+1).
		Strs("event_ids", slicex.Map(paymentIntent.Events, PaymentIntentEvent.EventID)).
		Msg("payment intent updated")
	return nil
}

// mapCancellation translates a cancelled transaction into a domain error
// using the per-item reasons, which DynamoDB reports in operation order.
// Anything other than a failed condition propagates unchanged so callers can
// treat it as retryable transport trouble.
func (r *DynamoDBRepository) mapCancellation(paymentIntent *PaymentIntent, err error) error {
	reasons, ok := dynamo.CancellationReasons(err)
	if !ok {
		return fmt.Errorf("failed to update payment intent: %w", err)
	}
	for i, reason := range reasons {
		if !dynamo.ReasonConditionFailed(reason) {
			continue
		}
		if i == 0 {
			// The condition returns the prior item on failure; no item
			// means there was nothing to update at all.
			if len(reason.Item) == 0 {
				return &NotFoundError{ID: paymentIntent.ID}
			}
			return &OptimisticLockError{ID: paymentIntent.ID}
		}
		if i-1 < len(paymentIntent.Events) {
			return &EventCollisionError{EventID: paymentIntent.Events[i-1].EventID()}
		}
	}
	return fmt.Errorf("failed to update payment intent: %w", err)
}

// GetEvent reads back a stored event envelope. Returns nil when absent.
func (r *DynamoDBRepository) GetEvent(ctx context.Context, paymentIntentID, eventID string) (*events.Envelope, error) {
	item, err := r.store.Get(ctx, paymentIntentEventKey(paymentIntentID, eventID), true)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent event: %w", err)
	}
	if item == nil {
		return nil, nil
	}

	var dto paymentIntentEventDTO
	if err := attributevalue.UnmarshalMap(item, &dto); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment intent event: %w", err)
	}
	return dto.toEnvelope(), nil
}
