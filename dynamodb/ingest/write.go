package ingest

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/acksell/ddbseed/dynamodb/attr"
	"github.com/acksell/ddbseed/dynamodb/ddberr"
	"github.com/acksell/ddbseed/dynamodb/retry"
)

type chunkResult struct {
	calls     int
	succeeded int
	failed    []FailedWrite
}

func failAll(tableName string, items []pendingItem, attempts int, cause error) chunkResult {
	return chunkResult{failed: failures(items, ddberr.Unprocessed(tableName, attempts, cause))}
}

func failures(items []pendingItem, err error) []FailedWrite {
	out := make([]FailedWrite, len(items))
	for i, it := range items {
		out[i] = FailedWrite{Request: it.req, Err: err}
	}
	return out
}

// writeChunk submits one chunk and resubmits whatever comes back unprocessed,
// at most maxRetries times. Once a call is on the wire it runs to completion
// even if ctx is cancelled, so its outcome is always accounted for; ctx only
// stops further submissions. keyAttrs names the table's primary key
// attributes when the table definition is known.
func (in *Ingestor) writeChunk(ctx context.Context, log *zap.Logger, tableName string, keyAttrs []string, items []pendingItem) chunkResult {
	var res chunkResult
	pending := items
	for attempt := 0; ; attempt++ {
		if err := in.waitForCapacity(ctx, len(pending)); err != nil {
			res.failed = append(res.failed, failures(pending, ddberr.Unprocessed(tableName, attempt, err))...)
			return res
		}

		unprocessed, err := in.submit(context.WithoutCancel(ctx), tableName, pending)
		res.calls++
		sent := attempt + 1
		if err != nil {
			class := retry.Classify(err)
			if !class.Retryable() {
				log.Warn("batch write failed", zap.Int("items", len(pending)), zap.String("code", retry.Code(err)), zap.Error(err))
				res.failed = append(res.failed, failures(pending, errors.Wrapf(err, "BatchWriteItem on %q", tableName))...)
				return res
			}
			if attempt >= in.opts.maxRetries {
				res.failed = append(res.failed, failures(pending, ddberr.Throttled("BatchWriteItem", tableName, sent, err))...)
				return res
			}
			log.Debug("batch write throttled", zap.Int("attempt", sent), zap.Stringer("class", class),
				zap.String("code", retry.Code(err)), zap.Error(err))
		} else {
			remaining := matchUnprocessed(log, pending, unprocessed, keyAttrs)
			res.succeeded += len(pending) - len(remaining)
			pending = remaining
			if len(pending) == 0 {
				return res
			}
			if attempt >= in.opts.maxRetries {
				res.failed = append(res.failed, failures(pending, ddberr.Unprocessed(tableName, sent, nil))...)
				return res
			}
			log.Debug("requeueing unprocessed items", zap.Int("attempt", sent), zap.Int("items", len(pending)))
		}

		if err := retry.Sleep(ctx, in.opts.backoff(attempt)); err != nil {
			res.failed = append(res.failed, failures(pending, ddberr.Unprocessed(tableName, sent, err))...)
			return res
		}
	}
}

// submit sends one BatchWriteItem call and returns the unprocessed items for
// tableName.
func (in *Ingestor) submit(ctx context.Context, tableName string, items []pendingItem) ([]map[string]types.AttributeValue, error) {
	reqs := make([]types.WriteRequest, len(items))
	for i, it := range items {
		reqs[i] = types.WriteRequest{PutRequest: &types.PutRequest{Item: it.req.Item.SDK()}}
	}

	start := time.Now()
	out, err := in.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{tableName: reqs},
	})
	in.observe(tableName, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	var unprocessed []map[string]types.AttributeValue
	for _, wr := range out.UnprocessedItems[tableName] {
		if wr.PutRequest != nil {
			unprocessed = append(unprocessed, wr.PutRequest.Item)
		}
	}
	if m := in.opts.metrics; m != nil && len(unprocessed) > 0 {
		m.Unprocessed.WithLabelValues(tableName).Add(float64(len(unprocessed)))
	}
	return unprocessed, nil
}

func (in *Ingestor) observe(tableName string, took time.Duration, err error) {
	m := in.opts.metrics
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if retry.Classify(err).Retryable() {
			outcome = "retryable"
		}
	}
	m.Calls.WithLabelValues(tableName, outcome).Inc()
	m.CallDuration.WithLabelValues(tableName).Observe(took.Seconds())
}

// matchUnprocessed returns the pending items named in unprocessed, in their
// original order. Entries are matched by content first, each accounting for
// at most one pending item. Entries whose content matches nothing are matched
// by primary key when keyAttrs is known. If an entry still cannot be placed
// every pending item is returned, since rewriting an item is harmless and
// counting an unwritten one as written is not.
func matchUnprocessed(log *zap.Logger, pending []pendingItem, unprocessed []map[string]types.AttributeValue, keyAttrs []string) []pendingItem {
	if len(unprocessed) == 0 {
		return nil
	}
	byContent := make(map[string][]int, len(pending))
	byKey := make(map[string][]int, len(pending))
	for i, it := range pending {
		byContent[it.fingerprint] = append(byContent[it.fingerprint], i)
		if it.key != "" {
			byKey[it.key] = append(byKey[it.key], i)
		}
	}
	matched := make([]bool, len(pending))
	take := func(idx map[string][]int, fp string) bool {
		for len(idx[fp]) > 0 {
			i := idx[fp][0]
			idx[fp] = idx[fp][1:]
			if !matched[i] {
				matched[i] = true
				return true
			}
		}
		return false
	}

	var leftover []attr.Item
	unplaced := 0
	for _, raw := range unprocessed {
		item, err := attr.ItemFromSDK(raw)
		if err != nil {
			log.Warn("cannot decode unprocessed item", zap.Error(err))
			unplaced++
			continue
		}
		fp, err := attr.Fingerprint(item)
		if err != nil || !take(byContent, fp) {
			leftover = append(leftover, item)
		}
	}
	for _, item := range leftover {
		kfp, ok := keyFingerprint(item, keyAttrs)
		if !ok || !take(byKey, kfp) {
			unplaced++
		}
	}
	if unplaced > 0 {
		log.Warn("unprocessed items did not all match the submitted batch, resubmitting all of them",
			zap.Int("unprocessed", len(unprocessed)), zap.Int("unmatched", unplaced))
		return pending
	}

	var out []pendingItem
	for i, it := range pending {
		if matched[i] {
			out = append(out, it)
		}
	}
	return out
}

func keyFingerprint(item attr.Item, keyAttrs []string) (string, bool) {
	if len(keyAttrs) == 0 {
		return "", false
	}
	key := make(attr.Item, len(keyAttrs))
	for _, name := range keyAttrs {
		v, ok := item[name]
		if !ok {
			return "", false
		}
		key[name] = v
	}
	fp, err := attr.KeyFingerprint(key)
	return fp, err == nil
}

// waitForCapacity takes n tokens from the rate limiter, in steps no larger
// than its burst.
func (in *Ingestor) waitForCapacity(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := in.opts.limiter
	if l == nil {
		return nil
	}
	burst := l.Burst()
	if burst < 1 {
		burst = 1
	}
	for n > 0 {
		step := min(n, burst)
		if err := l.WaitN(ctx, step); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return errors.Wrap(err, "waiting for write capacity")
		}
		n -= step
	}
	return nil
}
