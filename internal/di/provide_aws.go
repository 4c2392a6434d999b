package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/clock"
	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/optimistic"
	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/pessimistic"
)

func ProvideContext() context.Context {
	return context.Background()
}

func ProvideAWSConfig(ctx context.Context) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx)
}

func ProvideDynamoDB(config aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(config)
}

func ProvideClock() clock.Clock {
	return clock.New()
}

func ProvideOptimisticRepository(env string, client *dynamodb.Client) optimistic.Repository {
	return optimistic.NewDynamoDBRepository(client, optimistic.TableName(env))
}

func ProvideOptimisticService(repo optimistic.Repository) *optimistic.Service {
	return optimistic.NewService(repo)
}

func ProvidePessimisticRepository(env string, client *dynamodb.Client, lockOptions []LockOption) pessimistic.Repository {
	return pessimistic.NewDynamoDBRepository(client, pessimistic.TableName(env), lockOptions...)
}

// ProvidePessimisticService resolves only when the application registers a
// pessimistic.PaymentGateway through WithProviders; the gateway client is an
// external collaborator.
func ProvidePessimisticService(repo pessimistic.Repository, gateway pessimistic.PaymentGateway) *pessimistic.Service {
	return pessimistic.NewService(repo, gateway)
}
