package pessimistic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/dblock"
	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/dynamo"
)

// TableName derives the payment intents table name from the environment.
func TableName(env string) string {
	return fmt.Sprintf("pessimistic-payment-intents-%s", env)
}

type paymentIntentDTO struct {
	PK         string  `ddb:"hash"  dynamodbav:"PK"`
	SK         string  `ddb:"range" dynamodbav:"SK"`
	Id         string  `dynamodbav:"Id"`
	State      State   `dynamodbav:"State"`
	CustomerId string  `dynamodbav:"CustomerId"`
	Amount     int64   `dynamodbav:"Amount"`
	Currency   string  `dynamodbav:"Currency"`
	Charge     *string `dynamodbav:"Charge"`
}

func paymentIntentKey(id string) map[string]types.AttributeValue {
	return dynamo.Key(fmt.Sprintf("PAYMENT_INTENT#%s", id), "PAYMENT_INTENT")
}

func newPaymentIntentDTO(p *PaymentIntent) (paymentIntentDTO, error) {
	dto := paymentIntentDTO{
		PK:         fmt.Sprintf("PAYMENT_INTENT#%s", p.ID),
		SK:         "PAYMENT_INTENT",
		Id:         p.ID,
		State:      p.State,
		CustomerId: p.CustomerID,
		Amount:     p.Amount,
		Currency:   p.Currency,
	}
	if p.Charge != nil {
		charge, err := json.Marshal(p.Charge)
		if err != nil {
			return paymentIntentDTO{}, err
		}
		dto.Charge = aws.String(string(charge))
	}
	return dto, nil
}

func (dto paymentIntentDTO) toEntity() (*PaymentIntent, error) {
	var charge *Charge
	if dto.Charge != nil {
		charge = &Charge{}
		if err := json.Unmarshal([]byte(*dto.Charge), charge); err != nil {
			return nil, err
		}
	}
	return &PaymentIntent{
		ID:         dto.Id,
		State:      dto.State,
		CustomerID: dto.CustomerId,
		Amount:     dto.Amount,
		Currency:   dto.Currency,
		Charge:     charge,
	}, nil
}

// DynamoDBRepository is the Repository implementation over a single DynamoDB
// table. The lock lives on the aggregate record itself, so a critical section
// and the record it protects share one item.
type DynamoDBRepository struct {
	store *dynamo.Store
	lock  *dblock.PessimisticLock
}

var _ Repository = (*DynamoDBRepository)(nil)

// NewDynamoDBRepository creates a repository over the given table. Lock
// options (stale-lock timeout, attribute name, clock) pass through to the
// underlying lock.
func NewDynamoDBRepository(client *dynamodb.Client, tableName string, lockOpts ...dblock.Option) *DynamoDBRepository {
	store := dynamo.New(client, tableName)
	return &DynamoDBRepository{
		store: store,
		lock:  dblock.New(store, lockOpts...),
	}
}

// Get loads the aggregate with a strongly consistent read. Inside a held lock
// the consistent read is still required: the lock serializes writers but does
// not invalidate replica caches.
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
	item, err := attributevalue.MarshalMap(dto)
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

// Update writes the mutable attributes of an existing aggregate. A partial
// update keeps the lock attribute, if held, untouched.
func (r *DynamoDBRepository) Update(ctx context.Context, paymentIntent *PaymentIntent) error {
	dto, err := newPaymentIntentDTO(paymentIntent)
	if err != nil {
		return err
	}

	charge := types.AttributeValue(&types.AttributeValueMemberNULL{Value: true})
	if dto.Charge != nil {
		charge = &types.AttributeValueMemberS{Value: *dto.Charge}
	}

	err = r.store.Update(ctx, &dynamodb.UpdateItemInput{
		Key:              paymentIntentKey(paymentIntent.ID),
		UpdateExpression: aws.String("SET #State = :State, #Charge = :Charge"),
		ExpressionAttributeNames: map[string]string{
			"#State":  "State",
			"#Charge": "Charge",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":State":  &types.AttributeValueMemberS{Value: string(paymentIntent.State)},
			":Charge": charge,
		},
		ConditionExpression: aws.String("attribute_exists(Id)"),
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return &NotFoundError{ID: paymentIntent.ID}
		}
		return fmt.Errorf("failed to update payment intent: %w", err)
	}
	return nil
}

// WithLock scopes body under the advisory lock on the intent's record.
func (r *DynamoDBRepository) WithLock(ctx context.Context, id string, body func(ctx context.Context) error) error {
	return r.lock.WithLock(ctx, paymentIntentKey(id), body)
}
