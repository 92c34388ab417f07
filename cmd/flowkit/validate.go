package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dukex/flowkit/pkg/log"
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Load and resolve a flow document, reporting the first error",
		Flags:   flowFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("flowkit").With("action", "validate")

			flow, err := readFlow(command)
			if err != nil {
				return fmt.Errorf("flow validation failed: %w", err)
			}

			logger.Info("Flow resolved",
				"flow", flow.Name,
				"elements", len(flow.Elements))

			_, _ = fmt.Fprintf(os.Stdout, "Flow %q is valid\n", flow.Name)
			_, _ = fmt.Fprintf(os.Stdout, "  elements:    %d\n", len(flow.Elements))
			_, _ = fmt.Fprintf(os.Stdout, "  controllers: %d\n", len(flow.Controllers))
			_, _ = fmt.Fprintf(os.Stdout, "  components:  %d\n", len(flow.LoadedComponents))

			return nil
		},
	}
}
