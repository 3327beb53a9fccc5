package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/acksell/ddbseed/dynamodb/dataset"
	"github.com/acksell/ddbseed/dynamodb/ddberr"
	"github.com/acksell/ddbseed/dynamodb/ingest"
	"github.com/acksell/ddbseed/dynamodb/provision"
)

const (
	opCreate = "create"
	opUpload = "upload"
)

type operation func(ctx context.Context, env *runEnv) error

var operations = map[string]operation{
	opCreate: createTables,
	opUpload: uploadData,
}

func operationNames() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupOperation(name string) (operation, error) {
	op, ok := operations[name]
	if !ok {
		return nil, ddberr.UnknownOperation(name, operationNames())
	}
	return op, nil
}

func createTables(ctx context.Context, env *runEnv) error {
	svc := provision.New(env.client,
		provision.WithLogger(env.logger.Named("provision")),
		provision.WithWaitActive(env.settings.Wait, 2*time.Second),
	)
	results, err := svc.CreateAll(ctx, env.catalog)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.out, "%-20s failed: %v\n", r.Table, r.Err)
			continue
		}
		fmt.Fprintf(env.out, "%-20s %s\n", r.Table, r.Status)
	}
	return err
}

func uploadData(ctx context.Context, env *runEnv) error {
	s := env.settings
	reqs, err := loadRequests(s.Data)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	opts := []ingest.Option{
		ingest.WithCatalog(env.catalog),
		ingest.WithLogger(env.logger.Named("ingest")),
		ingest.WithMetrics(ingest.NewMetrics(reg)),
		ingest.WithMaxRetries(s.MaxRetries),
		ingest.WithConcurrency(s.Concurrency),
		ingest.WithTableCeiling(s.TableCeiling),
		ingest.WithTimeout(s.Timeout),
	}
	if s.RespectCapacity {
		if l := env.capacityLimiter(reqs); l != nil {
			opts = append(opts, ingest.WithRateLimit(l))
		}
	}

	reports, err := ingest.New(env.client, opts...).IngestAll(ctx, reqs)
	if err != nil {
		return err
	}

	var failed, submitted int
	for _, rep := range reports {
		fmt.Fprintf(env.out, "%-20s %d/%d items written in %d calls\n", rep.Table, rep.Succeeded, rep.Submitted, rep.Calls)
		for _, f := range rep.PermanentlyFailed {
			env.logger.Error("item not written", zap.String("table", rep.Table), zap.Error(f.Err))
		}
		failed += len(rep.PermanentlyFailed)
		submitted += rep.Submitted
	}

	if s.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(s.MetricsFile, reg); err != nil {
			env.logger.Warn("writing metrics", zap.String("path", s.MetricsFile), zap.Error(err))
		}
	}
	if failed > 0 {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "%d of %d items were not written", failed, submitted)
		}
		return errors.Errorf("%d of %d items were not written", failed, submitted)
	}
	return nil
}

func loadRequests(path string) ([]ingest.WriteRequest, error) {
	if path == "" {
		return dataset.Requests()
	}
	reqs, err := dataset.LoadFile(path)
	return reqs, errors.Wrapf(err, "dataset %q", path)
}

// capacityLimiter returns a limiter allowing, per second, the sum of the
// provisioned write units of the tables reqs target. It returns nil when any
// of them is on-demand or not in the catalog, as there is no capacity to
// respect then.
func (env *runEnv) capacityLimiter(reqs []ingest.WriteRequest) *rate.Limiter {
	seen := make(map[string]bool)
	var units int64
	for _, r := range reqs {
		if seen[r.Table] {
			continue
		}
		seen[r.Table] = true
		def, ok := env.catalog.Table(r.Table)
		if !ok || def.OnDemand() {
			env.logger.Info("not limiting upload rate", zap.String("table", r.Table), zap.Bool("known", ok))
			return nil
		}
		units += def.Throughput.WriteUnits
	}
	if units == 0 {
		return nil
	}
	env.logger.Debug("limiting upload rate", zap.Int64("itemsPerSecond", units))
	return rate.NewLimiter(rate.Limit(units), int(units))
}
