package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/cloudmatrix/cloudmatrix/internal/filter"
)

// ValidateAction loads and compiles the matrix document without executing
// anything. Exit is non-zero on any configuration error, including malformed
// filter patterns.
func ValidateAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	doc, err := app.LoadDocument(cmd.String("config"))
	if err != nil {
		return err
	}

	if _, err := filter.NewEngine(doc); err != nil {
		return err
	}

	fmt.Printf("matrix document valid: %d services, %d clouds\n",
		len(doc.Services), len(doc.Clouds()))
	return nil
}
