package optimistic

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/dynamo"
	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/events"
)

// Attribute names below are part of the on-wire contract; downstream readers
// depend on them matching exactly.

type paymentIntentDTO struct {
	PK         string  `ddb:"hash"  dynamodbav:"PK"`
	SK         string  `ddb:"range" dynamodbav:"SK"`
	Id         string  `dynamodbav:"Id"`
	State      State   `dynamodbav:"State"`
	CustomerId string  `dynamodbav:"CustomerId"`
	Amount     int64   `dynamodbav:"Amount"`
	Currency   string  `dynamodbav:"Currency"`
	Charge     *string `dynamodbav:"Charge"`
	Version    int64   `dynamodbav:"Version"`
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
		Version:    p.Version,
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
		Version:    dto.Version,
	}, nil
}

func (dto paymentIntentDTO) createItem() (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(dto)
}

// updateTransactItem is the aggregate write, always placed at index 0 of the
// transaction so a cancellation reason at that index maps onto the aggregate.
// ReturnValuesOnConditionCheckFailure carries the prior item back on a failed
// condition, which is how NotFound is told apart from a version mismatch.
func (dto paymentIntentDTO) updateTransactItem() types.TransactWriteItem {
	charge := types.AttributeValue(&types.AttributeValueMemberNULL{Value: true})
	if dto.Charge != nil {
		charge = &types.AttributeValueMemberS{Value: *dto.Charge}
	}
	return types.TransactWriteItem{
		Update: &types.Update{
			Key:              dynamo.Key(dto.PK, dto.SK),
			UpdateExpression: aws.String("SET #State = :State, #Amount = :Amount, #Charge = :Charge, #Version = :NewVersion"),
			ExpressionAttributeNames: map[string]string{
				"#State":   "State",
				"#Amount":  "Amount",
				"#Charge":  "Charge",
				"#Version": "Version",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":State":          &types.AttributeValueMemberS{Value: string(dto.State)},
				":Amount":         &types.AttributeValueMemberN{Value: strconv.FormatInt(dto.Amount, 10)},
				":Charge":         charge,
				":NewVersion":     &types.AttributeValueMemberN{Value: strconv.FormatInt(dto.Version+1, 10)},
				":CurrentVersion": &types.AttributeValueMemberN{Value: strconv.FormatInt(dto.Version, 10)},
			},
			ConditionExpression:                 aws.String("attribute_exists(Id) AND #Version = :CurrentVersion"),
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		},
	}
}

type paymentIntentEventDTO struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	Id            string `dynamodbav:"Id"`
	Name          string `dynamodbav:"Name"`
	AggregateId   string `dynamodbav:"AggregateId"`
	AggregateName string `dynamodbav:"AggregateName"`
	Payload       string `dynamodbav:"Payload"`
}

// Events live in the aggregate's partition so the aggregate update and the
// event inserts fit one transaction scope.
func paymentIntentEventKey(paymentIntentID, eventID string) map[string]types.AttributeValue {
	return dynamo.Key(
		fmt.Sprintf("PAYMENT_INTENT#%s", paymentIntentID),
		fmt.Sprintf("EVENT#%s", eventID),
	)
}

func newPaymentIntentEventDTO(envelope events.Envelope) paymentIntentEventDTO {
	return paymentIntentEventDTO{
		PK:            fmt.Sprintf("PAYMENT_INTENT#%s", envelope.AggregateID),
		SK:            fmt.Sprintf("EVENT#%s", envelope.ID),
		Id:            envelope.ID,
		Name:          envelope.Name,
		AggregateId:   envelope.AggregateID,
		AggregateName: envelope.AggregateName,
		Payload:       envelope.Payload,
	}
}

func (dto paymentIntentEventDTO) toEnvelope() *events.Envelope {
	return &events.Envelope{
		ID:            dto.Id,
		Name:          dto.Name,
		AggregateID:   dto.AggregateId,
		AggregateName: dto.AggregateName,
		Payload:       dto.Payload,
	}
}

// createTransactItem is an idempotent insert: re-emitting an already stored
// event id fails the condition and cancels the whole transaction.
func (dto paymentIntentEventDTO) createTransactItem() (types.TransactWriteItem, error) {
	item, err := attributevalue.MarshalMap(dto)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	return types.TransactWriteItem{
		Put: &types.Put{
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(Id)"),
		},
	}, nil
}
