package commands

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/urfave/cli/v3"
)

// HistoryAction lists recently archived runs, newest first. Requires the
// archive backend to be enabled.
func HistoryAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	archive := app.Archive()
	if archive == nil {
		return errors.New("run archive is not enabled (set ARCHIVE_ENABLED=true and DB_* settings)")
	}

	runs, err := archive.ListRuns(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(runs)
}
