package main

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/dukex/flowkit/pkg/log"
)

func NewInspectCommand() *cli.Command {
	flags := append(flowFlags(), &cli.BoolFlag{
		Name:  "json",
		Usage: "Render the resolved flow as JSON instead of a table",
	})

	return &cli.Command{
		Name:    "inspect",
		Aliases: []string{"i"},
		Usage:   "Print the resolved element graph of a flow document",
		Flags:   flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			flow, err := readFlow(command)
			if err != nil {
				return err
			}

			if command.Bool("json") {
				data, err := json.MarshalIndent(flow, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to render flow: %w", err)
				}

				_, _ = fmt.Fprintln(os.Stdout, string(data))

				return nil
			}

			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(writer, "PATH\tTYPE\tPACKAGE\tCONNECTIONS")

			for _, path := range slices.Sorted(maps.Keys(flow.Elements)) {
				element := flow.Elements[path]

				// Groups show their component reference where processors
				// show an implementation package.
				packageID := element.ComponentRef
				if element.Config != nil {
					packageID = element.Config.PackageID
				}

				_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\t%d\n", path, element.Type, packageID, len(element.Connections))
			}

			return writer.Flush()
		},
	}
}
