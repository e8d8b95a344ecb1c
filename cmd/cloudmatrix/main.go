package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/cloudmatrix/cloudmatrix/cmd/cloudmatrix/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configFlag := &cli.StringFlag{
		Name:     "config",
		Usage:    "path to the matrix document",
		Required: true,
	}

	app := &cli.Command{
		Name:  "cloudmatrix",
		Usage: "multi-cloud CI test-orchestration engine",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "expand, schedule, and execute the test matrix",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:  "runner",
						Usage: "test runner command (overrides RUNNER_COMMAND)",
					},
					&cli.StringFlag{
						Name:  "query",
						Usage: "JMESPath expression applied to the report before printing",
					},
				},
				Action: commands.RunAction,
			},
			{
				Name:   "expand",
				Usage:  "print the expanded and filtered matrix without executing",
				Flags:  []cli.Flag{configFlag},
				Action: commands.ExpandAction,
			},
			{
				Name:   "validate",
				Usage:  "check the matrix document and filter patterns",
				Flags:  []cli.Flag{configFlag},
				Action: commands.ValidateAction,
			},
			{
				Name:  "history",
				Usage: "list recently archived runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "maximum runs to list",
						Value: 20,
					},
				},
				Action: commands.HistoryAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok {
			if msg := exitErr.Error(); msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			os.Exit(exitErr.ExitCode()) //nolint:forbidigo // CLI entrypoint
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1) //nolint:forbidigo // CLI entrypoint
	}
}
