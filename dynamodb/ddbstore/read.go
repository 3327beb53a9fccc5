package ddbstore

import (
	"encoding/json"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/acksell/ddbseed/dynamodb/attr"
)

// Items returns every item of a table in key order. It is meant for tests
// and inspection, there is no paging.
func (s *Store) Items(tableName string) ([]attr.Item, error) {
	if _, ok := s.table(tableName); !ok {
		return nil, notFound(tableName)
	}
	var items []attr.Item
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: itemPrefix(tableName), PrefetchValues: true})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var item attr.Item
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			}); err != nil {
				return errors.Wrap(err, "decode item")
			}
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

// Count returns the number of items in a table.
func (s *Store) Count(tableName string) (int, error) {
	if _, ok := s.table(tableName); !ok {
		return 0, notFound(tableName)
	}
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: itemPrefix(tableName)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Tables returns the names of the tables in the store.
func (s *Store) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	return names
}
