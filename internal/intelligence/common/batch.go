// Package common holds the generic batch engine shared by the featurization
// pipelines: a semaphore-bounded worker pool writing into index-addressed
// result slots.
package common

import (
	"context"
	stdliberrors "errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgraph/pkg/errors"
)

// ---------------------------------------------------------------------------
// ItemStatus enumeration
// ---------------------------------------------------------------------------

// ItemStatus represents the outcome status of a single batch item.
type ItemStatus int

const (
	ItemStatusSuccess   ItemStatus = iota // processing completed successfully
	ItemStatusFailed                      // processing failed with an error
	ItemStatusTimeout                     // processing exceeded its timeout
	ItemStatusCancelled                   // processing was cancelled
)

// String returns the human-readable representation of an ItemStatus.
func (s ItemStatus) String() string {
	switch s {
	case ItemStatusSuccess:
		return "SUCCESS"
	case ItemStatusFailed:
		return "FAILED"
	case ItemStatusTimeout:
		return "TIMEOUT"
	case ItemStatusCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// ---------------------------------------------------------------------------
// Generic types
// ---------------------------------------------------------------------------

// ProcessFunc is the signature for a function that processes a single item.
type ProcessFunc[T, R any] func(ctx context.Context, item T) (R, error)

// ItemResult holds the outcome of processing a single item within a batch.
type ItemResult[R any] struct {
	Index      int        `json:"index"`
	Result     R          `json:"result"`
	Error      error      `json:"-"`
	DurationMs float64    `json:"duration_ms"`
	Status     ItemStatus `json:"status"`
}

// BatchResult aggregates the outcomes of a batch run.  Results[i] always
// belongs to items[i].
type BatchResult[R any] struct {
	Results           []*ItemResult[R] `json:"results"`
	TotalCount        int              `json:"total_count"`
	SuccessCount      int              `json:"success_count"`
	FailureCount      int              `json:"failure_count"`
	TotalDurationMs   float64          `json:"total_duration_ms"`
	AvgItemDurationMs float64          `json:"avg_item_duration_ms"`
}

// BatchObserver receives one summary per completed batch.
type BatchObserver interface {
	ObserveBatch(name string, total, succeeded, failed int, elapsed time.Duration)
}

// BatchProcessor defines the contract for a generic batch processing engine.
type BatchProcessor[T, R any] interface {
	// Process executes fn for every item, at most MaxConcurrency at a time.
	// Per-item failures are reported in the result, never as the returned
	// error.
	Process(ctx context.Context, items []T, fn ProcessFunc[T, R]) (*BatchResult[R], error)
}

// ---------------------------------------------------------------------------
// BatchOption functional options
// ---------------------------------------------------------------------------

type batchConfig struct {
	name           string
	maxConcurrency int
	itemTimeout    time.Duration
	observer       BatchObserver
	logger         logging.Logger
}

func defaultBatchConfig() *batchConfig {
	return &batchConfig{
		name:           "batch",
		maxConcurrency: runtime.NumCPU(),
		logger:         logging.NewNopLogger(),
	}
}

// BatchOption configures a batchProcessor.
type BatchOption func(*batchConfig)

// WithBatchName labels log lines and observer summaries.
func WithBatchName(name string) BatchOption {
	return func(c *batchConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithMaxConcurrency sets the maximum number of items processed concurrently.
func WithMaxConcurrency(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithItemTimeout bounds each item.  Zero leaves items unbounded.
func WithItemTimeout(d time.Duration) BatchOption {
	return func(c *batchConfig) {
		if d > 0 {
			c.itemTimeout = d
		}
	}
}

// WithBatchObserver injects a batch summary sink, typically metrics.
func WithBatchObserver(o BatchObserver) BatchOption {
	return func(c *batchConfig) {
		c.observer = o
	}
}

// WithBatchLogger injects a logger.
func WithBatchLogger(l logging.Logger) BatchOption {
	return func(c *batchConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// ---------------------------------------------------------------------------
// batchProcessor implementation
// ---------------------------------------------------------------------------

type batchProcessor[T, R any] struct {
	cfg *batchConfig
}

// NewBatchProcessor creates a new BatchProcessor with the supplied options.
func NewBatchProcessor[T, R any](opts ...BatchOption) BatchProcessor[T, R] {
	cfg := defaultBatchConfig()
	for _, o := range opts {
		o(cfg)
	}
	return &batchProcessor[T, R]{cfg: cfg}
}

func (bp *batchProcessor[T, R]) Process(
	ctx context.Context,
	items []T,
	fn ProcessFunc[T, R],
) (*BatchResult[R], error) {
	if fn == nil {
		return nil, errors.InvalidParam("process function must not be nil")
	}
	n := len(items)
	if n == 0 {
		return &BatchResult[R]{Results: []*ItemResult[R]{}}, nil
	}

	batchStart := time.Now()

	// Each worker owns results[idx]; no lock is needed.
	results := make([]*ItemResult[R], n)
	sem := make(chan struct{}, bp.cfg.maxConcurrency)
	var wg sync.WaitGroup

dispatch:
	for i := 0; i < n; i++ {
		// Acquire in the dispatching goroutine so at most maxConcurrency
		// goroutines exist at any time.
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			for j := i; j < n; j++ {
				results[j] = &ItemResult[R]{
					Index:  j,
					Error:  ctx.Err(),
					Status: classifyCtxError(ctx.Err()),
				}
			}
			break dispatch
		}

		wg.Add(1)
		go func(idx int, item T) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = bp.processOneItem(ctx, idx, item, fn)
		}(i, items[i])
	}
	wg.Wait()

	br := buildBatchResult(results, time.Since(batchStart))
	bp.cfg.logger.Debug("batch processed",
		logging.String("batch", bp.cfg.name),
		logging.Int("total", br.TotalCount),
		logging.Int("succeeded", br.SuccessCount),
		logging.Int("failed", br.FailureCount),
		logging.Float64("duration_ms", br.TotalDurationMs),
	)
	if bp.cfg.observer != nil {
		bp.cfg.observer.ObserveBatch(bp.cfg.name, br.TotalCount, br.SuccessCount, br.FailureCount, time.Since(batchStart))
	}
	return br, nil
}

// processOneItem runs fn once.  A panic inside fn is reported as a failed
// item rather than taking the whole batch down.
func (bp *batchProcessor[T, R]) processOneItem(
	ctx context.Context,
	idx int,
	item T,
	fn ProcessFunc[T, R],
) (ir *ItemResult[R]) {
	itemStart := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			bp.cfg.logger.Error("batch item panicked",
				logging.String("batch", bp.cfg.name),
				logging.Int("index", idx),
				logging.Any("panic", rec),
			)
			ir = &ItemResult[R]{
				Index:      idx,
				Error:      errors.Newf(errors.ErrCodeInternal, "item %d panicked: %v", idx, rec),
				Status:     ItemStatusFailed,
				DurationMs: msSince(itemStart),
			}
		}
	}()

	itemCtx := ctx
	if bp.cfg.itemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, bp.cfg.itemTimeout)
		defer cancel()
	}

	result, err := fn(itemCtx, item)
	if err != nil {
		return &ItemResult[R]{
			Index:      idx,
			Error:      err,
			Status:     classifyError(ctx, err),
			DurationMs: msSince(itemStart),
		}
	}
	return &ItemResult[R]{
		Index:      idx,
		Result:     result,
		Status:     ItemStatusSuccess,
		DurationMs: msSince(itemStart),
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func buildBatchResult[R any](results []*ItemResult[R], totalDuration time.Duration) *BatchResult[R] {
	br := &BatchResult[R]{
		Results:         results,
		TotalCount:      len(results),
		TotalDurationMs: float64(totalDuration.Microseconds()) / 1000.0,
	}
	var sumItemMs float64
	for _, r := range results {
		if r.Status == ItemStatusSuccess {
			br.SuccessCount++
		} else {
			br.FailureCount++
		}
		sumItemMs += r.DurationMs
	}
	if br.TotalCount > 0 {
		br.AvgItemDurationMs = sumItemMs / float64(br.TotalCount)
	}
	return br
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}

func classifyCtxError(err error) ItemStatus {
	switch {
	case err == nil:
		return ItemStatusSuccess
	case stdliberrors.Is(err, context.DeadlineExceeded):
		return ItemStatusTimeout
	default:
		return ItemStatusCancelled
	}
}

func classifyError(ctx context.Context, err error) ItemStatus {
	if stdliberrors.Is(err, context.DeadlineExceeded) {
		return ItemStatusTimeout
	}
	if stdliberrors.Is(err, context.Canceled) {
		return ItemStatusCancelled
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return classifyCtxError(ctxErr)
	}
	return ItemStatusFailed
}
