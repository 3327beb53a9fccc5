// Package ddbstore is a local stand-in for DynamoDB backed by BadgerDB. It
// implements the table and batch write operations of ddbiface.Client with
// the same validation DynamoDB applies, so provisioning and ingestion can run
// without an AWS account, either in memory or persisted to a directory.
package ddbstore

import (
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/acksell/ddbseed/dynamodb/ddbiface"
	"github.com/acksell/ddbseed/dynamodb/table"
)

// Store is a DynamoDB-compatible store backed by BadgerDB.
type Store struct {
	db   *badger.DB
	opts StoreOptions

	mu     sync.RWMutex
	tables map[string]*tableMeta
}

var _ ddbiface.Client = (*Store)(nil)

// StoreOptions configures the BadgerDB store.
type StoreOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// MaxWritesPerCall, when positive, makes BatchWriteItem process at most
	// that many requests per call and return the rest as unprocessed, the way
	// DynamoDB does when a table runs out of write capacity.
	MaxWritesPerCall int
	// Logger for the store and BadgerDB. If nil, logging is disabled.
	Logger *zap.Logger
}

// New opens the store and creates the given tables. Tables persisted by an
// earlier run are loaded first; a definition matching a persisted table is
// accepted as is.
func New(opts StoreOptions, defs ...table.TableDefinition) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	badgerOpts = badgerOpts.WithLogger(badgerLogger{opts.Logger.Named("badger").Sugar()})

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger db")
	}
	s := &Store{
		db:     db,
		opts:   opts,
		tables: make(map[string]*tableMeta),
	}
	if err := s.loadTables(); err != nil {
		db.Close()
		return nil, err
	}
	for _, def := range defs {
		if err := s.createTable(def); err != nil && !isSameTable(s, def) {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close closes the BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) table(name string) (*tableMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	return t, ok
}

// badgerLogger routes BadgerDB's log output through zap.
type badgerLogger struct {
	l *zap.SugaredLogger
}

func (b badgerLogger) Errorf(f string, v ...any)   { b.l.Errorf(f, v...) }
func (b badgerLogger) Warningf(f string, v ...any) { b.l.Warnf(f, v...) }
func (b badgerLogger) Infof(f string, v ...any)    { b.l.Debugf(f, v...) }
func (b badgerLogger) Debugf(f string, v ...any)   { b.l.Debugf(f, v...) }
