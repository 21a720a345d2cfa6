package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of one portal in a batch run.
type BatchResult struct {
	// PortalName is the portal's name in the config file.
	PortalName string

	// Run is the completed run state, nil when setup failed before a
	// run could start.
	Run *Run

	// Err is the run's terminal error, nil on success.
	Err error
}

// RunFactory builds a ready-to-execute pipeline and run for one named
// portal. The command layer implements it: each portal needs its own
// output tree, browser session, and drop directory.
type RunFactory func(ctx context.Context, portalName string) (*Pipeline, *Run, func(), error)

// BatchProcessor mirrors several portals from one invocation.
//
// Design decision: We use a separate BatchProcessor rather than folding
// batch handling into Pipeline because:
// 1. It keeps the Pipeline focused on a single portal's run
// 2. Each portal needs freshly built collaborators, which the factory
//    expresses directly
// 3. Failure isolation is a batch concern, not a pipeline concern
type BatchProcessor struct {
	factory     RunFactory
	concurrency int
	logger      *slog.Logger

	mu      sync.Mutex
	results []BatchResult
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the number of portals mirrored concurrently.
// The default is one: each portal runs a full browser, and the portals
// share one school server on the other end.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor. The factory is called
// once per portal so no state leaks between runs.
func NewBatchProcessor(factory RunFactory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// Process mirrors every named portal. One portal's failure never stops
// the others; the per-portal outcome is in the returned results, in the
// order the names were given. The error return reports cancellation.
func (bp *BatchProcessor) Process(ctx context.Context, portalNames []string) ([]BatchResult, error) {
	bp.logger.Info("starting batch run",
		"portals", len(portalNames), "concurrency", bp.concurrency)
	start := time.Now()

	bp.results = make([]BatchResult, len(portalNames))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, name := range portalNames {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				bp.record(i, BatchResult{PortalName: name, Err: ctx.Err()})
				return ctx.Err()
			default:
			}

			bp.logger.Info("mirroring portal", "portal", name, "index", i+1, "total", len(portalNames))

			pipe, run, cleanup, err := bp.factory(ctx, name)
			if err != nil {
				bp.logger.Warn("portal setup failed", "portal", name, "error", err)
				bp.record(i, BatchResult{PortalName: name, Err: err})
				return nil
			}

			err = pipe.Execute(ctx, run)
			cleanup()
			bp.record(i, BatchResult{PortalName: name, Run: run, Err: err})

			if err != nil {
				bp.logger.Warn("portal run failed", "portal", name, "error", err)
			} else {
				bp.logger.Info("portal mirrored", "portal", name)
			}
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch run complete",
		"portals", len(portalNames), "elapsed", time.Since(start))
	return bp.results, err
}

// record stores one portal's outcome.
func (bp *BatchProcessor) record(i int, res BatchResult) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.results[i] = res
}
