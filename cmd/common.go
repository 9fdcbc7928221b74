package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/longkey1/aiproj/internal/aiproj"
	"github.com/longkey1/aiproj/internal/aiproj/config"
	"github.com/longkey1/aiproj/internal/aiproj/runner"
	"github.com/longkey1/aiproj/internal/aiproj/threadlog"
	"github.com/longkey1/aiproj/internal/foundry"
	"github.com/longkey1/aiproj/internal/logger"
)

// session bundles what every operation command needs
type session struct {
	plan   *config.Plan
	logger *slog.Logger
	set    *config.Set
	name   string
}

// newSession loads the plan, resolves the configurations and picks the
// selected name. Resolution results are written to w.
func newSession(w io.Writer) (*session, error) {
	plan, err := config.LoadPlan()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logCfg := &logger.Config{Level: plan.LogLevel, Format: plan.LogFormat}
	if verbose {
		logCfg.Level = "debug"
	}
	log := logger.New(logCfg)

	name := plan.Selected
	if useConfig != "" {
		name = useConfig
	}

	set, err := resolveConfigs(plan, name, w)
	if err != nil {
		return nil, err
	}
	return &session{plan: plan, logger: log, set: set, name: name}, nil
}

// resolveConfigs resolves the plan's configurations plus extra (if not
// already listed) and reports each outcome on w.
func resolveConfigs(plan *config.Plan, extra string, w io.Writer) (*config.Set, error) {
	envFile := plan.EnvFile
	if envFileArg != "" {
		envFile = envFileArg
	}
	dotenv, err := config.LoadDotenv(envFile)
	if err != nil {
		return nil, err
	}
	src := config.NewViperSource(dotenv, config.EnvSource{})

	names := append([]string{}, plan.Configs...)
	if extra != "" {
		names = append(names, extra)
	}
	set := config.ResolveAll(src, names)

	fmt.Fprintln(w, "Available configurations:")
	for _, cfg := range set.Configs {
		fmt.Fprintf(w, "✓ %s\n", cfg)
	}
	for _, err := range set.Errors {
		var cfgErr *aiproj.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(w, "✗ %s: %v\n", cfgErr.Config, err)
			continue
		}
		fmt.Fprintf(w, "✗ %v\n", err)
	}
	return set, nil
}

// newRunner builds a runner whose clients authenticate with the default
// Azure credential chain.
func (s *session) newRunner(out io.Writer, parallel bool) (*runner.Runner, error) {
	poll, err := s.plan.PollIntervalDuration()
	if err != nil {
		return nil, err
	}
	timeout, err := s.plan.RequestTimeoutDuration()
	if err != nil {
		return nil, err
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure credential: %w", err)
	}

	factory := runner.NewClientFactory(cred,
		foundry.WithTimeout(timeout),
		foundry.WithPollInterval(poll),
		foundry.WithLogger(s.logger))

	return runner.New(factory,
		runner.WithOutput(out),
		runner.WithLogger(s.logger),
		runner.WithParallel(parallel)), nil
}

func (s *session) threadStore() (*threadlog.Store, error) {
	dir, err := threadlog.DefaultDir()
	if err != nil {
		return nil, err
	}
	return threadlog.NewStore(dir), nil
}

// readMessage returns the message from args, or reads it from stdin.
// On a terminal a single line is read after printing label.
func readMessage(args []string, label string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	info, err := os.Stdin.Stat()
	if err == nil && info.Mode()&os.ModeCharDevice != 0 {
		fmt.Fprint(os.Stderr, label)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("reading from stdin: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading from stdin: %w", err)
	}
	return strings.TrimSpace(string(input)), nil
}

// printSummary writes a one-line tally of the report to w
func printSummary(w io.Writer, report *runner.Report) {
	if report.Err != nil || len(report.Results) < 2 {
		return
	}
	counts := map[runner.Status]int{}
	for _, res := range report.Results {
		counts[res.Status]++
	}
	fmt.Fprintf(w, "\n%d succeeded, %d skipped, %d failed\n",
		counts[runner.StatusSucceeded], counts[runner.StatusSkipped], counts[runner.StatusFailed])
}

// execute runs the operations produced by build against the selected
// configuration. build is only called when the selection succeeded, so no
// input is requested for a configuration that is not available.
func (s *session) execute(ctx context.Context, parallel bool, build func(cfg config.Configuration) ([]runner.Operation, error)) error {
	r, err := s.newRunner(os.Stdout, parallel)
	if err != nil {
		return err
	}

	var ops []runner.Operation
	if cfg, ok := s.set.Lookup(s.name); ok {
		ops, err = build(cfg)
		if err != nil {
			return err
		}
	}

	report := r.Run(ctx, s.set, s.name, ops)
	printSummary(os.Stdout, report)
	return nil
}
