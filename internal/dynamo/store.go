// Package dynamo is the single seam between the cores and DynamoDB. It wraps
// a dynamodb.Client with the table the records live in and classifies the
// store's failure modes (conditional-check failures, transaction
// cancellations with per-item reasons) so callers never match on SDK types.
package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ReasonConditionalCheckFailed is the per-item cancellation code DynamoDB
// reports when a transact item's condition expression did not hold.
const ReasonConditionalCheckFailed = "ConditionalCheckFailed"

// Store is a thin facade over a DynamoDB table. It owns the table name so
// request builders upstream only deal with keys, items, and expressions.
type Store struct {
	client *dynamodb.Client
	table  string
}

// New creates a Store for the given table.
func New(client *dynamodb.Client, tableName string) *Store {
	return &Store{
		client: client,
		table:  tableName,
	}
}

// TableName returns the table this store operates on.
func (s *Store) TableName() string {
	return s.table
}

// Get reads the item at key. A strongly consistent read is requested when
// consistent is true. Returns nil when the item does not exist.
func (s *Store) Get(ctx context.Context, key map[string]types.AttributeValue, consistent bool) (map[string]types.AttributeValue, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key,
		ConsistentRead: aws.Bool(consistent),
	})
	if err != nil {
		return nil, err
	}
	return out.Item, nil
}

// Put writes a whole item, optionally gated by a condition expression.
func (s *Store) Put(ctx context.Context, in *dynamodb.PutItemInput) error {
	in.TableName = aws.String(s.table)
	_, err := s.client.PutItem(ctx, in)
	return err
}

// Update applies a partial, attribute-level mutation, optionally gated by a
// condition expression.
func (s *Store) Update(ctx context.Context, in *dynamodb.UpdateItemInput) error {
	in.TableName = aws.String(s.table)
	_, err := s.client.UpdateItem(ctx, in)
	return err
}

// TransactWrite commits the given operations atomically. The table name is
// stamped onto every operation. On cancellation, DynamoDB reports one reason
// per operation in declared order; use CancellationReasons to recover them.
func (s *Store) TransactWrite(ctx context.Context, items ...types.TransactWriteItem) error {
	for i := range items {
		switch {
		case items[i].Put != nil:
			items[i].Put.TableName = aws.String(s.table)
		case items[i].Update != nil:
			items[i].Update.TableName = aws.String(s.table)
		case items[i].Delete != nil:
			items[i].Delete.TableName = aws.String(s.table)
		case items[i].ConditionCheck != nil:
			items[i].ConditionCheck.TableName = aws.String(s.table)
		}
	}
	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return err
}

// Key builds a composite (PK, SK) item key.
func Key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// IsConditionalCheckFailed reports whether err is a failed condition on a
// single-item Put/Update/Delete.
func IsConditionalCheckFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	return errors.As(err, &cfe)
}

// CancellationReasons extracts the ordered per-item cancellation reasons from
// a cancelled TransactWriteItems call. The second return is false when err is
// not a transaction cancellation.
func CancellationReasons(err error) ([]types.CancellationReason, bool) {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return nil, false
	}
	return tce.CancellationReasons, true
}

// ReasonConditionFailed reports whether a single cancellation reason denotes
// a failed condition expression.
func ReasonConditionFailed(reason types.CancellationReason) bool {
	return reason.Code != nil && *reason.Code == ReasonConditionalCheckFailed
}
