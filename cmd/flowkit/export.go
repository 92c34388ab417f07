package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dukex/flowkit/pkg/deploy"
	"github.com/dukex/flowkit/pkg/log"
)

func NewExportCommand() *cli.Command {
	flags := append(flowFlags(), &cli.BoolFlag{
		Name:  "pretty",
		Usage: "Indent the exported deployment state",
	})

	return &cli.Command{
		Name:    "export",
		Aliases: []string{"e"},
		Usage:   "Assign local identities and emit the deployment state as JSON",
		Flags:   flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			flow, err := readFlow(command)
			if err != nil {
				return err
			}

			state, err := deploy.Assign(flow, deploy.NewUUIDAllocator())
			if err != nil {
				return err
			}

			var data []byte
			if command.Bool("pretty") {
				data, err = json.MarshalIndent(state, "", "  ")
			} else {
				data, err = json.Marshal(state)
			}

			if err != nil {
				return fmt.Errorf("failed to render deployment state: %w", err)
			}

			_, _ = fmt.Fprintln(os.Stdout, string(data))

			return nil
		},
	}
}
