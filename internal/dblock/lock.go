// Package dblock provides advisory, per-item pessimistic locking for records
// in a DynamoDB table. A lock is a reserved attribute stamped onto the target
// item with a conditional update; no separate lock item is ever created. The
// lock is scoped around a caller-supplied critical section and is released on
// every exit path, including panics.
package dblock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/clock"
	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/dynamo"
)

// DefaultLockAttribute is the item attribute used as the lock marker unless
// overridden with WithLockAttribute.
const DefaultLockAttribute = "__LockedAt"

// Key identifies the item to lock.
type Key = map[string]types.AttributeValue

// LockAcquisitionError is returned when the lock is already held by someone
// else or the target item does not exist. No lock is held and no item is
// created when this error is returned.
type LockAcquisitionError struct {
	Key Key
}

func (e *LockAcquisitionError) Error() string {
	return fmt.Sprintf("dblock: could not acquire lock on item %s", FormatKey(e.Key))
}

// LockItemNotFoundError is returned when release finds that the locked item
// vanished while the critical section ran.
type LockItemNotFoundError struct {
	Key Key
}

func (e *LockItemNotFoundError) Error() string {
	return fmt.Sprintf("dblock: locked item not found on release %s", FormatKey(e.Key))
}

// PessimisticLock scopes critical sections over items in a single table.
// Callers never wait for a contended lock; acquisition fails fast.
type PessimisticLock struct {
	store         *dynamo.Store
	lockAttribute string
	lockTimeout   time.Duration
	clock         clock.Clock
}

// Option configures a PessimisticLock.
type Option func(*PessimisticLock)

// WithLockAttribute overrides the attribute name used as the lock marker.
func WithLockAttribute(name string) Option {
	return func(l *PessimisticLock) {
		l.lockAttribute = name
	}
}

// WithLockTimeout makes an existing lock discardable once its age strictly
// exceeds d. At exactly d the lock is still valid. Without this option a lock
// abandoned by a crashed holder is held forever.
func WithLockTimeout(d time.Duration) Option {
	return func(l *PessimisticLock) {
		l.lockTimeout = d
	}
}

// WithClock overrides the wall-clock source. Test use.
func WithClock(c clock.Clock) Option {
	return func(l *PessimisticLock) {
		l.clock = c
	}
}

// New creates a PessimisticLock over the given store.
func New(store *dynamo.Store, opts ...Option) *PessimisticLock {
	l := &PessimisticLock{
		store:         store,
		lockAttribute: DefaultLockAttribute,
		clock:         clock.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WithLock acquires the lock on key, runs body, and releases the lock. The
// release is attempted exactly once on every exit path; when both the body
// and the release fail, the body's error wins. The lock is not reentrant: a
// second WithLock on the same key while the first body runs fails with
// LockAcquisitionError.
func (l *PessimisticLock) WithLock(ctx context.Context, key Key, body func(ctx context.Context) error) (err error) {
	if err := l.acquire(ctx, key); err != nil {
		return err
	}
	defer func() {
		releaseErr := l.release(ctx, key)
		if err == nil {
			err = releaseErr
		}
	}()
	return body(ctx)
}

// acquire stamps the lock attribute with the current instant. The condition
// requires the item to exist so that UpdateItem's create-if-absent behavior
// never materializes a new record.
func (l *PessimisticLock) acquire(ctx context.Context, key Key) error {
	now := l.clock.Now()

	condition := fmt.Sprintf("%s AND attribute_not_exists(#LockAttribute)", itemExistsCondition(key))
	values := map[string]types.AttributeValue{
		":LockAttribute": &types.AttributeValueMemberS{Value: clock.Format(now)},
	}
	if l.lockTimeout > 0 {
		// A stored timestamp older than now-timeout (strictly) is stale and
		// may be overwritten. Timestamps are fixed-width ISO-8601, so the
		// string comparison is chronological.
		condition = fmt.Sprintf(
			"%s AND (attribute_not_exists(#LockAttribute) OR :StaleBefore > #LockAttribute)",
			itemExistsCondition(key),
		)
		values[":StaleBefore"] = &types.AttributeValueMemberS{Value: clock.Format(now.Add(-l.lockTimeout))}
	}

	err := l.store.Update(ctx, &dynamodb.UpdateItemInput{
		Key:                       key,
		UpdateExpression:          aws.String("SET #LockAttribute = :LockAttribute"),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeNames:  map[string]string{"#LockAttribute": l.lockAttribute},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return &LockAcquisitionError{Key: key}
		}
		return err
	}

	zerolog.Ctx(ctx).Debug().
		Str("key", FormatKey(key)).
		Str("lock_attribute", l.lockAttribute).
		Msg("lock acquired")
	return nil
}

// release removes the lock attribute, gated only on item existence. A release
// against a vanished item reports LockItemNotFoundError and is not retried.
func (l *PessimisticLock) release(ctx context.Context, key Key) error {
	err := l.store.Update(ctx, &dynamodb.UpdateItemInput{
		Key:                      key,
		UpdateExpression:         aws.String("REMOVE #LockAttribute"),
		ConditionExpression:      aws.String(itemExistsCondition(key)),
		ExpressionAttributeNames: map[string]string{"#LockAttribute": l.lockAttribute},
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return &LockItemNotFoundError{Key: key}
		}
		return err
	}

	zerolog.Ctx(ctx).Debug().
		Str("key", FormatKey(key)).
		Msg("lock released")
	return nil
}

// itemExistsCondition requires every key component to be present on the item.
func itemExistsCondition(key Key) string {
	names := sortedKeyNames(key)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("attribute_exists(%s)", name))
	}
	return strings.Join(parts, " AND ")
}

// FormatKey renders an item key for error messages and logs.
func FormatKey(key Key) string {
	names := sortedKeyNames(key)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		value := "?"
		if s, ok := key[name].(*types.AttributeValueMemberS); ok {
			value = s.Value
		}
		parts = append(parts, fmt.Sprintf("%s=%s", name, value))
	}
	return strings.Join(parts, ", ")
}

func sortedKeyNames(key Key) []string {
	names := make([]string, 0, len(key))
	for name := range key {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
