// Package runner provides the default external test-runner adapter.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sort"
	"time"

	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
)

// ExecRunner shells out to a configured runner command once per job. The
// command receives the service and cloud as positional arguments and the
// job's merged environment (document EnvVars plus the parameter
// combination) on top of the parent process environment.
type ExecRunner struct {
	// Command is the runner executable. Required.
	Command string
	// Args are inserted before the service and cloud arguments.
	Args []string
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Stdout and Stderr receive the runner's output; nil discards it.
	Stdout io.Writer
	Stderr io.Writer
	// WaitDelay bounds how long Wait blocks after the context is
	// cancelled before the process is killed outright.
	WaitDelay time.Duration
}

// NewExecRunner builds an ExecRunner for the given command line.
func NewExecRunner(command string, args []string, logger *slog.Logger) (*ExecRunner, error) {
	if command == "" {
		return nil, fmt.Errorf("runner command is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{
		Command:   command,
		Args:      args,
		Logger:    logger,
		WaitDelay: 5 * time.Second,
	}, nil
}

// Run executes the runner command for one job. A non-zero exit is returned
// as an error; cancellation of ctx terminates the process.
func (r *ExecRunner) Run(ctx context.Context, spec model.JobSpec) error {
	args := append(append([]string(nil), r.Args...), spec.Service, spec.Cloud)

	cmd := exec.CommandContext(ctx, r.Command, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.WaitDelay = r.WaitDelay
	cmd.Env = jobEnviron(spec)

	r.Logger.InfoContext(ctx, "invoking runner",
		"command", r.Command, "service", spec.Service, "cloud", spec.Cloud,
		"parameters", spec.ParamString())

	if err := cmd.Run(); err != nil {
		// Let the tracker classify context-driven termination as a
		// timeout instead of an execution failure.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("runner %s: %w", spec, err)
	}
	return nil
}

// jobEnviron merges the parent environment with the job's EnvVars and
// parameter combination. Parameters are exported with a MATRIX_ prefix so
// runners can distinguish them from passthrough variables.
func jobEnviron(spec model.JobSpec) []string {
	env := append([]string(nil), environ()...)

	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+spec.Env[k])
	}

	pkeys := make([]string, 0, len(spec.Parameters))
	for k := range spec.Parameters {
		pkeys = append(pkeys, k)
	}
	sort.Strings(pkeys)
	for _, k := range pkeys {
		env = append(env, "MATRIX_"+k+"="+spec.Parameters[k])
	}

	env = append(env,
		"CLOUDMATRIX_RUN_ID="+spec.RunID,
		"CLOUDMATRIX_SERVICE="+spec.Service,
		"CLOUDMATRIX_CLOUD="+spec.Cloud,
	)
	return env
}
