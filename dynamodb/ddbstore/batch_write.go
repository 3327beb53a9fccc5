package ddbstore

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/acksell/ddbseed/dynamodb/attr"
)

// maxBatchWriteItems is the DynamoDB limit of requests per BatchWriteItem call.
const maxBatchWriteItems = 25

type pendingPut struct {
	tableName string
	key       []byte
	value     []byte
	req       types.WriteRequest
}

// BatchWriteItem performs put operations. The whole request is validated
// first and rejected with a ValidationException when DynamoDB would reject
// it: more than 25 requests, duplicate keys in one table, or items whose key
// attributes are missing or mistyped. Unknown tables give a
// ResourceNotFoundException. With StoreOptions.MaxWritesPerCall set, the
// requests past the limit are returned as unprocessed.
func (s *Store) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if params == nil || len(params.RequestItems) == 0 {
		return nil, validationException("RequestItems must not be empty")
	}
	total := 0
	for _, reqs := range params.RequestItems {
		total += len(reqs)
	}
	if total > maxBatchWriteItems {
		return nil, validationException("Too many items requested for the BatchWriteItem call: %d, limit is %d", total, maxBatchWriteItems)
	}

	// Deterministic order, so the MaxWritesPerCall cut is reproducible.
	names := make([]string, 0, len(params.RequestItems))
	for name := range params.RequestItems {
		names = append(names, name)
	}
	sort.Strings(names)

	var puts []pendingPut
	for _, name := range names {
		meta, ok := s.table(name)
		if !ok {
			return nil, notFound(name)
		}
		seen := make(map[string]bool)
		for i, req := range params.RequestItems[name] {
			if req.PutRequest == nil {
				return nil, validationException("%s[%d]: only PutRequest is supported", name, i)
			}
			item, err := attr.ItemFromSDK(req.PutRequest.Item)
			if err != nil {
				return nil, validationException("One or more parameter values were invalid: %v", err)
			}
			if err := meta.Definition.ValidateItem(item); err != nil {
				return nil, validationException("One or more parameter values were invalid: %v", err)
			}
			pk, _ := meta.Definition.PrimaryKey(item)
			key := itemKey(meta.Definition, pk)
			if seen[string(key)] {
				return nil, validationException("Provided list of item keys contains duplicates")
			}
			seen[string(key)] = true

			value, err := json.Marshal(item)
			if err != nil {
				return nil, errors.Wrap(err, "encode item")
			}
			puts = append(puts, pendingPut{tableName: name, key: key, value: value, req: req})
		}
	}

	write := puts
	var unprocessed map[string][]types.WriteRequest
	if n := s.opts.MaxWritesPerCall; n > 0 && len(puts) > n {
		write = puts[:n]
		unprocessed = make(map[string][]types.WriteRequest)
		for _, p := range puts[n:] {
			unprocessed[p.tableName] = append(unprocessed[p.tableName], p.req)
		}
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		for _, p := range write {
			if err := txn.Set(p.key, p.value); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "write items")
	}
	if len(unprocessed) > 0 {
		s.opts.Logger.Debug("batch write partially processed",
			zap.Int("written", len(write)), zap.Int("unprocessed", len(puts)-len(write)))
	}
	return &dynamodb.BatchWriteItemOutput{UnprocessedItems: unprocessed}, nil
}

