package ddbstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/ddbseed/dynamodb/attr"
	"github.com/acksell/ddbseed/dynamodb/table"
)

var threadTable = table.TableDefinition{
	Name: "Thread",
	Attributes: []table.AttributeDefinition{
		{Name: "ForumName", Type: table.AttributeTypeS},
		{Name: "Subject", Type: table.AttributeTypeS},
	},
	KeySchema:  table.MustKeySchema(table.Hash("ForumName"), table.Range("Subject")),
	Throughput: &table.Throughput{ReadUnits: 5, WriteUnits: 5},
}

var productTable = table.TableDefinition{
	Name:       "ProductCatalog",
	Attributes: []table.AttributeDefinition{{Name: "Id", Type: table.AttributeTypeN}},
	KeySchema:  table.MustKeySchema(table.Hash("Id")),
}

func newTestStore(t *testing.T, defs ...table.TableDefinition) *Store {
	t.Helper()
	store, err := New(StoreOptions{InMemory: true}, defs...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func apiCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr smithy.APIError
	require.ErrorAs(t, err, &apiErr)
	return apiErr.ErrorCode()
}

func putRequests(tableName string, items ...attr.Item) *dynamodb.BatchWriteItemInput {
	reqs := make([]types.WriteRequest, len(items))
	for i, it := range items {
		reqs[i] = types.WriteRequest{PutRequest: &types.PutRequest{Item: it.SDK()}}
	}
	return &dynamodb.BatchWriteItemInput{RequestItems: map[string][]types.WriteRequest{tableName: reqs}}
}

func products(n int) []attr.Item {
	items := make([]attr.Item, n)
	for i := range items {
		items[i] = attr.Item{"Id": attr.Int(int64(100 + i)), "Title": attr.String(fmt.Sprintf("Book %d", i))}
	}
	return items
}

func TestCreateAndDescribeTable(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	out, err := store.CreateTable(ctx, threadTable.CreateTableInput())
	require.NoError(t, err)
	assert.Equal(t, types.TableStatusActive, out.TableDescription.TableStatus)

	_, err = store.CreateTable(ctx, threadTable.CreateTableInput())
	var inUse *types.ResourceInUseException
	require.ErrorAs(t, err, &inUse)

	desc, err := store.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String("Thread")})
	require.NoError(t, err)
	assert.Equal(t, threadTable, table.FromDescription(desc.Table))
	assert.Equal(t, int64(0), aws.ToInt64(desc.Table.ItemCount))

	_, err = store.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String("Missing")})
	var notFound *types.ResourceNotFoundException
	require.ErrorAs(t, err, &notFound)
}

func TestCreateTableValidation(t *testing.T) {
	store := newTestStore(t)
	in := threadTable.CreateTableInput()
	in.KeySchema[0], in.KeySchema[1] = in.KeySchema[1], in.KeySchema[0]

	_, err := store.CreateTable(context.Background(), in)
	assert.Equal(t, "ValidationException", apiCode(t, err))
	assert.Empty(t, store.Tables())
}

func TestBatchWriteItem(t *testing.T) {
	ctx := context.Background()

	t.Run("writes items", func(t *testing.T) {
		store := newTestStore(t, productTable)
		out, err := store.BatchWriteItem(ctx, putRequests("ProductCatalog", products(25)...))
		require.NoError(t, err)
		assert.Empty(t, out.UnprocessedItems)

		n, err := store.Count("ProductCatalog")
		require.NoError(t, err)
		assert.Equal(t, 25, n)

		items, err := store.Items("ProductCatalog")
		require.NoError(t, err)
		require.Len(t, items, 25)
		want := products(1)[0]
		found := false
		for _, it := range items {
			found = found || attr.ItemsEqual(want, it)
		}
		assert.True(t, found, "item %v not stored", want)
	})

	t.Run("overwrites by canonical key", func(t *testing.T) {
		store := newTestStore(t, productTable)
		_, err := store.BatchWriteItem(ctx, putRequests("ProductCatalog", attr.Item{"Id": attr.MustNumber("1"), "v": attr.Int(1)}))
		require.NoError(t, err)
		_, err = store.BatchWriteItem(ctx, putRequests("ProductCatalog", attr.Item{"Id": attr.MustNumber("1.0"), "v": attr.Int(2)}))
		require.NoError(t, err)

		items, err := store.Items("ProductCatalog")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.True(t, attr.Equal(attr.Int(2), items[0]["v"]))
	})

	t.Run("more than 25 requests", func(t *testing.T) {
		store := newTestStore(t, productTable)
		_, err := store.BatchWriteItem(ctx, putRequests("ProductCatalog", products(26)...))
		assert.Equal(t, "ValidationException", apiCode(t, err))
		n, _ := store.Count("ProductCatalog")
		assert.Zero(t, n)
	})

	t.Run("duplicate keys", func(t *testing.T) {
		store := newTestStore(t, productTable)
		items := products(3)
		items[2]["Id"] = items[0]["Id"]
		_, err := store.BatchWriteItem(ctx, putRequests("ProductCatalog", items...))
		assert.Equal(t, "ValidationException", apiCode(t, err))
		n, _ := store.Count("ProductCatalog")
		assert.Zero(t, n, "a rejected call writes nothing")
	})

	t.Run("wrong key type", func(t *testing.T) {
		store := newTestStore(t, productTable)
		_, err := store.BatchWriteItem(ctx, putRequests("ProductCatalog", attr.Item{"Id": attr.String("101")}))
		assert.Equal(t, "ValidationException", apiCode(t, err))
	})

	t.Run("missing key", func(t *testing.T) {
		store := newTestStore(t, threadTable)
		_, err := store.BatchWriteItem(ctx, putRequests("Thread", attr.Item{"ForumName": attr.String("Amazon S3")}))
		assert.Equal(t, "ValidationException", apiCode(t, err))
	})

	t.Run("unknown table", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.BatchWriteItem(ctx, putRequests("Nope", products(1)...))
		var notFound *types.ResourceNotFoundException
		require.ErrorAs(t, err, &notFound)
	})

	t.Run("empty request", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{})
		assert.Equal(t, "ValidationException", apiCode(t, err))
	})

	t.Run("delete requests are rejected", func(t *testing.T) {
		store := newTestStore(t, productTable)
		_, err := store.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: map[string][]types.WriteRequest{
			"ProductCatalog": {{DeleteRequest: &types.DeleteRequest{Key: products(1)[0].SDK()}}},
		}})
		assert.Equal(t, "ValidationException", apiCode(t, err))
	})
}

func TestMaxWritesPerCall(t *testing.T) {
	store, err := New(StoreOptions{InMemory: true, MaxWritesPerCall: 10}, productTable)
	require.NoError(t, err)
	defer store.Close()

	items := products(25)
	out, err := store.BatchWriteItem(context.Background(), putRequests("ProductCatalog", items...))
	require.NoError(t, err)
	unprocessed := out.UnprocessedItems["ProductCatalog"]
	require.Len(t, unprocessed, 15)

	first, err := attr.ItemFromSDK(unprocessed[0].PutRequest.Item)
	require.NoError(t, err)
	assert.True(t, attr.ItemsEqual(items[10], first), "the tail of the batch is left unprocessed")

	n, err := store.Count("ProductCatalog")
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := New(StoreOptions{Path: dir}, productTable)
	require.NoError(t, err)
	_, err = store.CreateTable(ctx, threadTable.CreateTableInput())
	require.NoError(t, err)
	_, err = store.BatchWriteItem(ctx, putRequests("ProductCatalog", products(5)...))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := New(StoreOptions{Path: dir}, productTable)
	require.NoError(t, err, "re-declaring an identical table is accepted")
	defer reopened.Close()

	assert.ElementsMatch(t, []string{"ProductCatalog", "Thread"}, reopened.Tables())
	n, err := reopened.Count("ProductCatalog")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	desc, err := reopened.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String("Thread")})
	require.NoError(t, err)
	assert.Equal(t, threadTable, table.FromDescription(desc.Table))
}

func TestNewRejectsConflictingTable(t *testing.T) {
	dir := t.TempDir()
	store, err := New(StoreOptions{Path: dir}, productTable)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	changed := productTable.Clone()
	changed.Throughput = &table.Throughput{ReadUnits: 1, WriteUnits: 1}
	_, err = New(StoreOptions{Path: dir}, changed)
	var inUse *types.ResourceInUseException
	require.ErrorAs(t, err, &inUse)
}
