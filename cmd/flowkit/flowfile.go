package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/dukex/flowkit/pkg/loader"
	"github.com/dukex/flowkit/pkg/models"
)

// flowFlags returns the flags shared by every flowkit subcommand.
func flowFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "flow",
			Aliases:  []string{"f"},
			Usage:    "Path to the flow document",
			Required: true,
			Sources:  cli.EnvVars("FLOWKIT_FLOW"),
		},
		&cli.StringFlag{
			Name:    "components",
			Aliases: []string{"c"},
			Usage:   "Directory component references are resolved against (defaults to the flow document's component_dir, next to the flow file)",
			Sources: cli.EnvVars("FLOWKIT_COMPONENT_DIR"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}

// readFlow loads and resolves the flow named by the command's flags.
func readFlow(command *cli.Command) (*models.Flow, error) {
	return loadAndResolve(command.String("flow"), command.String("components"))
}

func loadAndResolve(flowPath, componentsFlag string) (*models.Flow, error) {
	data, err := os.ReadFile(flowPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow document: %w", err)
	}

	componentDir := resolveComponentDir(componentsFlag, flowPath, data)

	flow, err := loader.NewLoader(loader.NewFSSource(os.DirFS(componentDir))).Load(data)
	if err != nil {
		return nil, err
	}

	if err := flow.Resolve(); err != nil {
		return nil, err
	}

	return flow, nil
}

// resolveComponentDir picks the directory component references resolve
// against: the explicit flag as given, else the document's component_dir
// relative to the flow file, else a "components" directory next to the flow
// file.
func resolveComponentDir(flag, flowPath string, data []byte) string {
	if flag != "" {
		return flag
	}

	dir := "components"

	var peek struct {
		ComponentDir string `yaml:"component_dir"`
	}

	if err := yaml.Unmarshal(data, &peek); err == nil && peek.ComponentDir != "" {
		dir = peek.ComponentDir
	}

	if filepath.IsAbs(dir) {
		return dir
	}

	return filepath.Join(filepath.Dir(flowPath), dir)
}
