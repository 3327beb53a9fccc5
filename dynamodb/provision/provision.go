// Package provision creates the tables of a catalog. Creation is idempotent:
// a table that already exists with an identical definition is reported as
// AlreadyExists, one that differs is a schema conflict. Nothing is ever
// altered or deleted.
package provision

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/acksell/ddbseed/dynamodb/ddberr"
	"github.com/acksell/ddbseed/dynamodb/ddbiface"
	"github.com/acksell/ddbseed/dynamodb/retry"
	"github.com/acksell/ddbseed/dynamodb/table"
)

type Status int

const (
	Created Status = iota + 1
	AlreadyExists
)

func (s Status) String() string {
	switch s {
	case Created:
		return "created"
	case AlreadyExists:
		return "already exists"
	}
	return "unknown"
}

type Option func(*options)

type options struct {
	maxAttempts int
	backoff     retry.BackoffFunc
	logger      *zap.Logger
	waitActive  time.Duration
	waitDelay   time.Duration
}

// WithMaxAttempts bounds the number of CreateTable/DescribeTable calls made
// for one table while the service keeps throttling. Defaults to 5.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		o.maxAttempts = n
	}
}

// WithBackoff replaces [retry.DefaultBackoff].
func WithBackoff(fn retry.BackoffFunc) Option {
	return func(o *options) {
		o.backoff = fn
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithWaitActive makes CreateTable block until the table reports ACTIVE, for
// at most d. The first check is made right away, later ones every minDelay.
func WithWaitActive(d, minDelay time.Duration) Option {
	return func(o *options) {
		o.waitActive = d
		o.waitDelay = minDelay
	}
}

// Service provisions tables through a DynamoDB compatible client.
type Service struct {
	client ddbiface.TableCreator
	opts   options
}

func New(client ddbiface.TableCreator, opts ...Option) *Service {
	s := &Service{
		client: client,
		opts: options{
			maxAttempts: 5,
			backoff:     retry.DefaultBackoff,
			logger:      zap.NewNop(),
		},
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	if s.opts.maxAttempts < 1 {
		s.opts.maxAttempts = 1
	}
	return s
}

// CreateTable validates def and creates it. Validation failures never reach
// the network. When the table already exists its live definition is compared
// with def: equal definitions give AlreadyExists, anything else a
// [ddberr.SchemaConflictError] carrying the difference.
func (s *Service) CreateTable(ctx context.Context, def table.TableDefinition) (Status, error) {
	if err := def.Validate(); err != nil {
		return 0, err
	}
	log := s.opts.logger.With(zap.String("table", def.Name))

	err := s.do(ctx, "CreateTable", def.Name, func(ctx context.Context) error {
		_, err := s.client.CreateTable(ctx, def.CreateTableInput())
		return err
	})
	var inUse *types.ResourceInUseException
	switch {
	case err == nil:
		log.Info("table created")
		if err := s.waitActive(ctx, def.Name); err != nil {
			return Created, err
		}
		return Created, nil
	case errors.As(err, &inUse):
		if err := s.compare(ctx, def); err != nil {
			return 0, err
		}
		log.Info("table already exists")
		return AlreadyExists, s.waitActive(ctx, def.Name)
	}
	return 0, err
}

// compare checks the live definition of an existing table against def.
func (s *Service) compare(ctx context.Context, def table.TableDefinition) error {
	var out *dynamodb.DescribeTableOutput
	err := s.do(ctx, "DescribeTable", def.Name, func(ctx context.Context) error {
		var err error
		out, err = s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(def.Name)})
		return err
	})
	if err != nil {
		return err
	}
	if out.Table == nil {
		return errors.Errorf("describing table %q: empty response", def.Name)
	}
	live := table.FromDescription(out.Table)
	if diff := cmp.Diff(normalize(def), normalize(live)); diff != "" {
		return ddberr.SchemaConflict(def.Name, diff)
	}
	return nil
}

// do runs call until it succeeds, fails permanently or the attempt budget is
// spent on throttling and server errors.
func (s *Service) do(ctx context.Context, op, tableName string, call func(context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = call(ctx)
		if err == nil {
			return nil
		}
		class := retry.Classify(err)
		if !class.Retryable() {
			return remoteError(op, tableName, err)
		}
		if attempt >= s.opts.maxAttempts {
			return ddberr.Throttled(op, tableName, attempt, err)
		}
		wait := s.opts.backoff(attempt - 1)
		s.opts.logger.Debug("retrying",
			zap.String("op", op),
			zap.String("table", tableName),
			zap.Int("attempt", attempt),
			zap.Stringer("class", class),
			zap.Duration("backoff", wait),
			zap.Error(err))
		if err := retry.Sleep(ctx, wait); err != nil {
			return errors.Wrapf(err, "%s %q", op, tableName)
		}
	}
}

// remoteError turns a ValidationException into a ddberr.ValidationError and
// wraps everything else with the failing operation.
func remoteError(op, tableName string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" {
		return ddberr.Validation(tableName, "", "%s rejected by DynamoDB: %s", op, apiErr.ErrorMessage())
	}
	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return err
	}
	return errors.Wrapf(err, "%s %q", op, tableName)
}

func (s *Service) waitActive(ctx context.Context, name string) error {
	if s.opts.waitActive <= 0 {
		return nil
	}
	w := dynamodb.NewTableExistsWaiter(s.client, func(o *dynamodb.TableExistsWaiterOptions) {
		if s.opts.waitDelay > 0 {
			o.MinDelay = s.opts.waitDelay
			if o.MaxDelay < o.MinDelay {
				o.MaxDelay = o.MinDelay
			}
		}
	})
	err := w.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, s.opts.waitActive)
	return errors.Wrapf(err, "waiting for table %q to become active", name)
}

// normalize orders the parts of a definition whose order DynamoDB does not
// preserve, so that definitions compare equal by content.
func normalize(def table.TableDefinition) table.TableDefinition {
	def = def.Clone()
	sort.Slice(def.Attributes, func(i, j int) bool { return def.Attributes[i].Name < def.Attributes[j].Name })
	sort.Slice(def.LocalIndexes, func(i, j int) bool { return def.LocalIndexes[i].Name < def.LocalIndexes[j].Name })
	for i := range def.LocalIndexes {
		p := &def.LocalIndexes[i].Projection
		sort.Strings(p.NonKeyAttributes)
		if len(p.NonKeyAttributes) == 0 {
			p.NonKeyAttributes = nil
		}
	}
	if len(def.LocalIndexes) == 0 {
		def.LocalIndexes = nil
	}
	return def
}
