// Package runner selects one resolved configuration, builds its client and
// runs a list of independent operations against it. A failing operation is
// reported and never stops the ones after it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/longkey1/aiproj/internal/aiproj"
	"github.com/longkey1/aiproj/internal/aiproj/config"
	"github.com/longkey1/aiproj/internal/foundry"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle state of a run
type State int

const (
	StateIdle State = iota
	StateConfigSelected
	StateOperationsComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfigSelected:
		return "config selected"
	case StateOperationsComplete:
		return "operations complete"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status is the outcome of one operation
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Operation is one independent call sequence against a configuration
type Operation interface {
	// Name is the short key of the operation (e.g., "chat").
	Name() string
	// Title is the heading printed before the operation runs.
	Title() string
	// Run executes the operation. The returned output is reported even when
	// err is non-nil. Returning a *SkipError marks the operation as skipped.
	Run(ctx context.Context, cfg config.Configuration, client *foundry.Client) (string, error)
}

// SkipError reports that an operation chose not to run
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return e.Reason
}

// Skip returns a *SkipError with the given reason
func Skip(format string, args ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// Result is the outcome of a single operation
type Result struct {
	Config    string
	Operation string
	Status    Status
	Output    string
	Err       error // *aiproj.OperationError when Status is StatusFailed
}

// Report is the outcome of a whole run
type Report struct {
	Selected string
	State    State
	Results  []Result
	Err      error // *aiproj.SelectionError, or the client construction failure
}

// Failed returns the failed results
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Runner executes operations for one selected configuration
type Runner struct {
	factory  Factory
	out      io.Writer
	logger   *slog.Logger
	parallel bool
}

// Option configures a Runner
type Option func(*Runner)

// WithOutput sets where human-readable reports are written
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.out = w
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithParallel runs the operations concurrently
func WithParallel(enabled bool) Option {
	return func(r *Runner) {
		r.parallel = enabled
	}
}

// New creates a Runner that builds clients with factory
func New(factory Factory, opts ...Option) *Runner {
	r := &Runner{
		factory: factory,
		out:     io.Discard,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run selects the configuration called name from set and runs ops against
// it. If name is not in set, the selection failure is reported in
// Report.Err and nothing else happens. The client is closed before Run
// returns.
func (r *Runner) Run(ctx context.Context, set *config.Set, name string, ops []Operation) *Report {
	report := &Report{Selected: name, State: StateIdle}

	cfg, ok := set.Lookup(name)
	if !ok {
		report.Err = &aiproj.SelectionError{Config: name, Available: set.Names()}
		fmt.Fprintf(r.out, "Selected configuration '%s' is not available\n", name)
		r.logger.Warn("configuration not available", "config", name, "available", strings.Join(set.Names(), ","))
		return report
	}
	report.State = StateConfigSelected
	r.logger.Debug("configuration selected", "config", cfg.Name, "endpoint", cfg.Endpoint)

	client, err := r.factory(cfg)
	if err != nil {
		report.Err = fmt.Errorf("creating client for %s: %w", cfg.Name, err)
		fmt.Fprintf(r.out, "Error with %s: %v\n", cfg.Name, report.Err)
		return report
	}
	defer func() {
		if err := client.Close(); err != nil {
			r.logger.Warn("closing client", "config", cfg.Name, "error", err)
		}
	}()

	if r.parallel {
		report.Results = r.runParallel(ctx, cfg, client, ops)
		for _, res := range report.Results {
			r.print(res, ops)
		}
	} else {
		report.Results = make([]Result, 0, len(ops))
		for _, op := range ops {
			fmt.Fprintf(r.out, "\n=== %s with %s ===\n", op.Title(), cfg.Name)
			res := r.runOne(ctx, cfg, client, op)
			r.printBody(res)
			report.Results = append(report.Results, res)
		}
	}

	report.State = StateOperationsComplete
	return report
}

func (r *Runner) runParallel(ctx context.Context, cfg config.Configuration, client *foundry.Client, ops []Operation) []Result {
	results := make([]Result, len(ops))
	var g errgroup.Group
	for i, op := range ops {
		g.Go(func() error {
			results[i] = r.runOne(ctx, cfg, client, op)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// runOne executes op and converts its outcome into a Result. Panics are
// recovered into failed results.
func (r *Runner) runOne(ctx context.Context, cfg config.Configuration, client *foundry.Client, op Operation) (res Result) {
	res = Result{Config: cfg.Name, Operation: op.Name()}

	defer func() {
		if p := recover(); p != nil {
			res.Status = StatusFailed
			res.Err = &aiproj.OperationError{Config: cfg.Name, Operation: op.Name(), Err: fmt.Errorf("panic: %v", p)}
			r.logger.Error("operation panicked", "config", cfg.Name, "operation", op.Name(), "panic", p)
		}
	}()

	r.logger.Debug("operation started", "config", cfg.Name, "operation", op.Name())
	output, err := op.Run(ctx, cfg, client)
	res.Output = output

	var skip *SkipError
	switch {
	case err == nil:
		res.Status = StatusSucceeded
	case errors.As(err, &skip):
		res.Status = StatusSkipped
		if res.Output == "" {
			res.Output = skip.Reason
		}
	default:
		res.Status = StatusFailed
		res.Err = &aiproj.OperationError{Config: cfg.Name, Operation: op.Name(), Err: err}
		r.logger.Debug("operation failed", "config", cfg.Name, "operation", op.Name(), "error", err)
	}
	return res
}

func (r *Runner) print(res Result, ops []Operation) {
	title := res.Operation
	for _, op := range ops {
		if op.Name() == res.Operation {
			title = op.Title()
			break
		}
	}
	fmt.Fprintf(r.out, "\n=== %s with %s ===\n", title, res.Config)
	r.printBody(res)
}

func (r *Runner) printBody(res Result) {
	if res.Output != "" {
		fmt.Fprintln(r.out, strings.TrimRight(res.Output, "\n"))
	}
	if res.Status == StatusFailed {
		var opErr *aiproj.OperationError
		cause := res.Err
		if errors.As(res.Err, &opErr) {
			cause = opErr.Err
		}
		fmt.Fprintf(r.out, "Error with %s (%s): %v\n", res.Config, res.Operation, cause)
	}
}
