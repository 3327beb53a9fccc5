// Package ddbiface provides the narrow interface over the DynamoDB operations
// this module needs. It is satisfied by both the AWS SDK v2 DynamoDB client and
// by ddbstore.Store, so provisioning and ingestion work the same against real
// AWS DynamoDB, DynamoDB Local or the BadgerDB-backed local store.
package ddbiface

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Client mirrors the method signatures of the AWS SDK v2 *dynamodb.Client.
type Client interface {
	TableCreator
	BatchWriter
}

// TableCreator is the schema side of the client. It also satisfies
// dynamodb.DescribeTableAPIClient, so it can drive the SDK's table waiters.
type TableCreator interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type BatchWriter interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

var (
	_ Client                           = (*dynamodb.Client)(nil)
	_ dynamodb.DescribeTableAPIClient = TableCreator(nil)
)
