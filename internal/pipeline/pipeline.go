package pipeline

import (
	"context"
	"errors"
	"log/slog"
)

// Step is one phase of a mirror run. Steps execute in sequence against
// the shared Run state.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
// 3. It's more extensible for future features (e.g., retries per step)
type Step interface {
	// Do executes the step. It returns an error only for conditions that
	// invalidate the rest of the run (failed login, cancellation);
	// partial failures are recorded in the run summary and return nil.
	Do(ctx context.Context, run *Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes the phases of one mirror run in order.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// continueOnError keeps later steps running after a failure. The
	// mirror uses it for the tail of the run: mappings and the report
	// must be written even when the crawl aborted, so a cut-short run
	// still leaves a consistent archive behind.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to keep executing steps
// after one fails. The first error is still returned from Execute.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a Pipeline. Steps are added with AddSteps.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in order against the run.
//
// Cancellation is owned by the steps, not checked between them: the
// crawl step absorbs a cancel and returns nil precisely so the mapping
// and report steps still run and the partial mirror stays described.
// A step that does propagate a cancellation error stops the pipeline
// (subject to continueOnError) and marks the summary cancelled.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	var firstErr error

	for _, step := range p.steps {
		p.logger.Info("executing step", "step", step.Name(), "portal", run.Portal.String())

		if err := step.Do(ctx, run); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				run.Summary.Cancelled = true
			}
			p.logger.Error("step failed",
				"step", step.Name(), "portal", run.Portal.String(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			if !p.continueOnError {
				return firstErr
			}
			continue
		}

		p.logger.Debug("step completed", "step", step.Name())
	}
	return firstErr
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
