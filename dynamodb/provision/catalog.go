package provision

import (
	"context"

	"go.uber.org/zap"

	"github.com/acksell/ddbseed/dynamodb/ddberr"
	"github.com/acksell/ddbseed/dynamodb/table"
)

// Result is the outcome of provisioning one table.
type Result struct {
	Table  string
	Status Status
	Err    error
}

// CreateAll provisions every table of the catalog in declaration order. A
// schema conflict is recorded for its table and the remaining tables are
// still attempted; any other error stops the run. The returned error is the
// first error seen.
func (s *Service) CreateAll(ctx context.Context, c *table.Catalog) ([]Result, error) {
	var (
		results  []Result
		firstErr error
	)
	for _, def := range c.ListTables() {
		status, err := s.CreateTable(ctx, def)
		results = append(results, Result{Table: def.Name, Status: status, Err: err})
		if err == nil {
			continue
		}
		s.opts.logger.Error("provisioning failed", zap.String("table", def.Name), zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
		if !ddberr.IsSchemaConflict(err) {
			break
		}
	}
	return results, firstErr
}
