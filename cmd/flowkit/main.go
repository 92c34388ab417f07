package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"
)

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:                  "flowkit",
		Usage:                 "Validate, inspect, and export declarative dataflow topologies",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewValidateCommand(),
			NewInspectCommand(),
			NewExportCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
