// Package ingest delivers put requests through the 25 item BatchWriteItem API.
//
// Requests for a table are validated up front, split into order preserving
// chunks and written concurrently. Items the service returns as unprocessed
// are resubmitted with jittered exponential backoff until they succeed or the
// retry budget runs out; every submitted item ends up either counted as
// succeeded or listed in the report's PermanentlyFailed, never silently
// dropped.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/acksell/ddbseed/dynamodb/attr"
	"github.com/acksell/ddbseed/dynamodb/ddberr"
	"github.com/acksell/ddbseed/dynamodb/ddbiface"
	"github.com/acksell/ddbseed/dynamodb/retry"
	"github.com/acksell/ddbseed/dynamodb/table"
)

// MaxBatchSize is the largest number of requests BatchWriteItem accepts.
const MaxBatchSize = 25

// WriteRequest puts Item into Table.
type WriteRequest struct {
	Table string
	Item  attr.Item
}

// FailedWrite is a request that could not be written, with the reason.
type FailedWrite struct {
	Request WriteRequest
	Err     error
}

// Report summarises one Ingest call. Submitted equals Succeeded plus
// len(PermanentlyFailed) once pre-flight validation has passed.
type Report struct {
	Table             string
	Submitted         int
	Chunks            int
	Calls             int
	Succeeded         int
	PermanentlyFailed []FailedWrite
}

// Err returns nil when nothing failed, otherwise an error wrapping the first
// failure.
func (r Report) Err() error {
	if len(r.PermanentlyFailed) == 0 {
		return nil
	}
	return errors.Wrapf(r.PermanentlyFailed[0].Err, "%d of %d items for table %q permanently failed, first",
		len(r.PermanentlyFailed), r.Submitted, r.Table)
}

type Option func(*options)

type options struct {
	maxRetries   int
	backoff      retry.BackoffFunc
	batchSize    int
	concurrency  int
	tableCeiling int64
	catalog      *table.Catalog
	logger       *zap.Logger
	metrics      *Metrics
	limiter      *rate.Limiter
	timeout      time.Duration
}

// WithMaxRetries sets how many times unprocessed items of a chunk are
// resubmitted. A chunk is sent at most 1+n times. Defaults to 8.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		o.maxRetries = n
	}
}

// WithBackoff sets the wait before each resubmission. Defaults to
// [retry.DefaultBackoff].
func WithBackoff(fn retry.BackoffFunc) Option {
	return func(o *options) {
		o.backoff = fn
	}
}

// WithBatchSize sets the chunk size, clamped to 1..MaxBatchSize.
func WithBatchSize(n int) Option {
	return func(o *options) {
		o.batchSize = n
	}
}

// WithConcurrency bounds the chunks in flight for one Ingest call. Defaults to 4.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithTableCeiling bounds the chunks in flight per table across all
// concurrent calls on the same Ingestor. Zero means no ceiling.
func WithTableCeiling(n int) Option {
	return func(o *options) {
		o.tableCeiling = int64(n)
	}
}

// WithCatalog enables item validation against the table definitions and
// primary key aware chunking.
func WithCatalog(c *table.Catalog) Option {
	return func(o *options) {
		o.catalog = c
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithRateLimit limits the number of items submitted per second. Every
// submission waits for as many tokens as it carries items.
func WithRateLimit(l *rate.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithTimeout bounds each Ingest call. Items not written when it expires are
// reported as failed with the deadline error.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// Ingestor writes put requests in batches. It is safe for concurrent use.
type Ingestor struct {
	client ddbiface.BatchWriter
	opts   options

	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

func New(client ddbiface.BatchWriter, opts ...Option) *Ingestor {
	in := &Ingestor{
		client: client,
		opts: options{
			maxRetries:  8,
			backoff:     retry.DefaultBackoff,
			batchSize:   MaxBatchSize,
			concurrency: 4,
			logger:      zap.NewNop(),
		},
		sems: make(map[string]*semaphore.Weighted),
	}
	for _, opt := range opts {
		opt(&in.opts)
	}
	if in.opts.batchSize < 1 || in.opts.batchSize > MaxBatchSize {
		in.opts.batchSize = MaxBatchSize
	}
	if in.opts.concurrency < 1 {
		in.opts.concurrency = 1
	}
	if in.opts.maxRetries < 0 {
		in.opts.maxRetries = 0
	}
	return in
}

// Ingest writes reqs, which must all target tableName. A pre-flight failure
// is returned as a [ddberr.ValidationError] before anything is written. Item
// level failures after that are reported in the Report, see [Report.Err].
func (in *Ingestor) Ingest(ctx context.Context, tableName string, reqs []WriteRequest) (Report, error) {
	rep := Report{Table: tableName, Submitted: len(reqs)}
	items, err := in.prepare(tableName, reqs)
	if err != nil {
		return rep, err
	}
	if len(items) == 0 {
		return rep, nil
	}

	if in.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.opts.timeout)
		defer cancel()
	}

	var (
		keyFn    func(pendingItem) (string, bool)
		keyAttrs []string
	)
	if in.opts.catalog != nil {
		keyFn = func(it pendingItem) (string, bool) { return it.key, it.key != "" }
		def, _ := in.opts.catalog.Table(tableName)
		keyAttrs = def.KeySchema.Attributes()
	}
	chunks := chunk(items, in.opts.batchSize, keyFn)
	rep.Chunks = len(chunks)
	log := in.opts.logger.With(zap.String("table", tableName))
	log.Debug("ingesting", zap.Int("items", len(items)), zap.Int("chunks", len(chunks)))

	results := make([]chunkResult, len(chunks))
	sem := in.tableSemaphore(tableName)
	var g errgroup.Group
	g.SetLimit(in.opts.concurrency)
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			// Stop launching: whatever is left was never submitted.
			results[i] = failAll(tableName, c, 0, err)
			continue
		}
		g.Go(func() error {
			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					results[i] = failAll(tableName, c, 0, err)
					return nil
				}
				defer sem.Release(1)
			}
			results[i] = in.writeChunk(ctx, log.With(zap.Int("chunk", i)), tableName, keyAttrs, c)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		rep.Calls += r.calls
		rep.Succeeded += r.succeeded
		rep.PermanentlyFailed = append(rep.PermanentlyFailed, r.failed...)
	}
	if m := in.opts.metrics; m != nil {
		m.Items.WithLabelValues(tableName, "succeeded").Add(float64(rep.Succeeded))
		m.Items.WithLabelValues(tableName, "failed").Add(float64(len(rep.PermanentlyFailed)))
	}
	if n := len(rep.PermanentlyFailed); n > 0 {
		log.Warn("items permanently failed", zap.Int("failed", n), zap.Int("succeeded", rep.Succeeded),
			zap.Error(rep.PermanentlyFailed[0].Err))
	} else {
		log.Info("table ingested", zap.Int("items", rep.Succeeded), zap.Int("calls", rep.Calls))
	}
	return rep, nil
}

// IngestAll groups reqs by table, in order of first appearance, and ingests
// the groups concurrently. Every group passes pre-flight validation before
// any of them is written. Reports are returned in group order.
func (in *Ingestor) IngestAll(ctx context.Context, reqs []WriteRequest) ([]Report, error) {
	var order []string
	groups := make(map[string][]WriteRequest)
	for _, r := range reqs {
		if _, ok := groups[r.Table]; !ok {
			order = append(order, r.Table)
		}
		groups[r.Table] = append(groups[r.Table], r)
	}
	for _, name := range order {
		if _, err := in.prepare(name, groups[name]); err != nil {
			return nil, err
		}
	}

	reports := make([]Report, len(order))
	var g errgroup.Group
	for i, name := range order {
		g.Go(func() error {
			rep, err := in.Ingest(ctx, name, groups[name])
			reports[i] = rep
			return err
		})
	}
	return reports, g.Wait()
}

// pendingItem is a request ready to be sent: its wire form and the
// fingerprint used to recognise it among unprocessed items.
type pendingItem struct {
	req         WriteRequest
	fingerprint string
	// key is the primary key fingerprint, with numbers in canonical form. Set
	// only when a catalog is known.
	key string
}

// prepare runs pre-flight validation and renders the requests.
func (in *Ingestor) prepare(tableName string, reqs []WriteRequest) ([]pendingItem, error) {
	var def *table.TableDefinition
	if c := in.opts.catalog; c != nil {
		d, ok := c.Table(tableName)
		if !ok {
			return nil, ddberr.Validation(tableName, "table", "table is not in the catalog")
		}
		def = &d
	}

	items := make([]pendingItem, len(reqs))
	for i, r := range reqs {
		field := fmt.Sprintf("requests[%d]", i)
		if r.Table != tableName {
			return nil, ddberr.Validation(tableName, field, "request targets table %q", r.Table)
		}
		if len(r.Item) == 0 {
			return nil, ddberr.Validation(tableName, field, "item is empty")
		}
		for name, v := range r.Item {
			if !v.IsValid() {
				return nil, ddberr.Validation(tableName, field+"."+name, "attribute has no value")
			}
		}
		fp, err := attr.Fingerprint(r.Item)
		if err != nil {
			return nil, ddberr.Validation(tableName, field, "item cannot be encoded: %v", err)
		}
		items[i] = pendingItem{req: r, fingerprint: fp}

		if def != nil {
			if err := def.ValidateItem(r.Item); err != nil {
				return nil, errors.Wrap(err, field)
			}
			key, _ := def.PrimaryKey(r.Item)
			if items[i].key, err = attr.KeyFingerprint(key); err != nil {
				return nil, ddberr.Validation(tableName, field, "key cannot be encoded: %v", err)
			}
		}
	}
	return items, nil
}

func (in *Ingestor) tableSemaphore(name string) *semaphore.Weighted {
	if in.opts.tableCeiling <= 0 {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	s, ok := in.sems[name]
	if !ok {
		s = semaphore.NewWeighted(in.opts.tableCeiling)
		in.sems[name] = s
	}
	return s
}
