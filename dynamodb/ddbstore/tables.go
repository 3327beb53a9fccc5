package ddbstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/acksell/ddbseed/dynamodb/schema"
	"github.com/acksell/ddbseed/dynamodb/table"
)

// tableMeta is a created table. It is persisted as JSON under metaKey.
type tableMeta struct {
	Definition table.TableDefinition `json:"-"`
	Document   schema.Table          `json:"table"`
	Created    time.Time             `json:"created"`
}

// CreateTable creates a table from its definition. The definition is
// validated the way DynamoDB validates it.
func (s *Store) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if params == nil {
		return nil, validationException("params is required")
	}
	def := table.FromCreateTableInput(params)
	if err := s.createTable(def); err != nil {
		return nil, err
	}
	meta, _ := s.table(def.Name)
	return &dynamodb.CreateTableOutput{TableDescription: s.describe(meta, 0)}, nil
}

// DescribeTable returns the definition of a table, always ACTIVE, with its
// current item count.
func (s *Store) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if params == nil || params.TableName == nil {
		return nil, validationException("TableName is required")
	}
	meta, ok := s.table(*params.TableName)
	if !ok {
		return nil, notFound(*params.TableName)
	}
	n, err := s.Count(*params.TableName)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{Table: s.describe(meta, n)}, nil
}

func (s *Store) describe(meta *tableMeta, items int) *types.TableDescription {
	d := meta.Definition.Description(types.TableStatusActive)
	d.CreationDateTime = aws.Time(meta.Created)
	d.ItemCount = aws.Int64(int64(items))
	return d
}

func (s *Store) createTable(def table.TableDefinition) error {
	if err := def.Validate(); err != nil {
		return validationException("%s", err.Error())
	}
	doc, err := schema.FromDefinition(def)
	if err != nil {
		return validationException("%s", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tables[def.Name]; exists {
		return &types.ResourceInUseException{Message: aws.String(fmt.Sprintf("Table already exists: %s", def.Name))}
	}
	meta := &tableMeta{Definition: def.Clone(), Document: doc, Created: time.Now().UTC()}
	raw, err := json.Marshal(meta)
	if err != nil {
		return errors.Wrap(err, "encode table metadata")
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(def.Name), raw)
	}); err != nil {
		return errors.Wrapf(err, "persist table %q", def.Name)
	}
	s.tables[def.Name] = meta
	s.opts.Logger.Debug("table created", zap.String("table", def.Name))
	return nil
}

func (s *Store) loadTables() error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: metaPrefix(), PrefetchValues: true})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var meta tableMeta
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				return errors.Wrapf(err, "decode table metadata %q", it.Item().Key())
			}
			def, err := schema.ToDefinition(meta.Document)
			if err != nil {
				return errors.Wrapf(err, "load table %q", meta.Document.Name)
			}
			meta.Definition = def
			s.tables[def.Name] = &meta
		}
		return nil
	})
}

// isSameTable reports whether def is already present with the same definition.
func isSameTable(s *Store, def table.TableDefinition) bool {
	meta, ok := s.table(def.Name)
	if !ok {
		return false
	}
	doc, err := schema.FromDefinition(def)
	return err == nil && cmp.Equal(meta.Document, doc, cmpopts.EquateEmpty())
}
