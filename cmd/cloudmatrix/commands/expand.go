package commands

import (
	"context"
	"encoding/json"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
	"github.com/cloudmatrix/cloudmatrix/internal/service"
	"github.com/cloudmatrix/cloudmatrix/internal/tracker"
)

// noopRunner satisfies the tracker dependency for plan-only invocations;
// it never runs because expansion does not dispatch.
type noopRunner struct{}

func (noopRunner) Run(context.Context, model.JobSpec) error { return nil }

// expandedJob is one row of the expand output.
type expandedJob struct {
	Service        string            `json:"service"`
	Cloud          string            `json:"cloud"`
	Parameters     map[string]string `json:"parameters,omitempty"`
	TimeoutMinutes int               `json:"timeout_minutes"`
	Skipped        bool              `json:"skipped,omitempty"`
	SkipPattern    string            `json:"skip_pattern,omitempty"`
}

// ExpandAction prints the expanded and filtered matrix without executing
// anything. Output order matches dispatch order, so two invocations over the
// same document diff cleanly.
func ExpandAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	doc, err := app.LoadDocument(cmd.String("config"))
	if err != nil {
		return err
	}

	trk, err := tracker.New(tracker.Options{Runner: noopRunner{}, Logger: app.Logger})
	if err != nil {
		return err
	}

	svc, err := service.NewRunService(service.RunServiceOptions{
		Document: doc,
		Capacity: app.Config.Capacity,
		Tracker:  trk,
		Logger:   app.Logger,
	})
	if err != nil {
		return err
	}

	runnable, skips := svc.Plan()

	out := make([]expandedJob, 0, len(runnable)+len(skips))
	for _, spec := range runnable {
		out = append(out, expandedJob{
			Service:        spec.Service,
			Cloud:          spec.Cloud,
			Parameters:     spec.Parameters,
			TimeoutMinutes: spec.TimeoutMinutes,
		})
	}
	for _, skip := range skips {
		out = append(out, expandedJob{
			Service:        skip.Spec.Service,
			Cloud:          skip.Spec.Cloud,
			Parameters:     skip.Spec.Parameters,
			TimeoutMinutes: skip.Spec.TimeoutMinutes,
			Skipped:        true,
			SkipPattern:    skip.Pattern,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
