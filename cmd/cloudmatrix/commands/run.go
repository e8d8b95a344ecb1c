package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/cloudmatrix/cloudmatrix/internal/report"
	"github.com/cloudmatrix/cloudmatrix/internal/runner"
	"github.com/cloudmatrix/cloudmatrix/internal/service"
	"github.com/cloudmatrix/cloudmatrix/internal/tracker"
)

// RunAction executes the full matrix: expand, filter, schedule, execute,
// report. The process exits zero iff every non-skipped job passed.
func RunAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	doc, err := app.LoadDocument(cmd.String("config"))
	if err != nil {
		return err
	}

	command := cmd.String("runner")
	if command == "" {
		command = app.Config.RunnerCommand
	}
	execRunner, err := runner.NewExecRunner(command, app.Config.RunnerArgs, app.Logger)
	if err != nil {
		return fmt.Errorf("configure runner: %w (set RUNNER_COMMAND or pass --runner)", err)
	}
	execRunner.Stdout = os.Stderr
	execRunner.Stderr = os.Stderr

	trk, err := tracker.New(tracker.Options{
		Runner:      execRunner,
		GracePeriod: app.Config.TerminationGracePeriod,
		Logger:      app.Logger,
		Metrics:     app.Metrics,
	})
	if err != nil {
		return err
	}

	svc, err := service.NewRunService(service.RunServiceOptions{
		Document:    doc,
		Capacity:    app.Config.Capacity,
		Tracker:     trk,
		Archive:     app.Archive(),
		Baseline:    app.Baseline(),
		BaselineTTL: app.Config.Redis.BaselineTTL,
		Logger:      app.Logger,
		Metrics:     app.Metrics,
	})
	if err != nil {
		return err
	}

	snap, err := svc.Execute(ctx)
	if err != nil {
		return err
	}

	if err := report.Write(os.Stdout, snap, cmd.String("query")); err != nil {
		return err
	}

	if code := report.ExitCode(snap); code != 0 {
		return cli.Exit(fmt.Sprintf("run failed: %d failed, %d timed out",
			snap.Summary.Failed, snap.Summary.TimedOut), code)
	}
	return nil
}
