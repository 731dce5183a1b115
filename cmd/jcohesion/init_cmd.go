package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/jcohesion/pkg/config"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new jcohesion configuration file",
		Description: `Creates a jcohesion.toml configuration file with the default settings.

Examples:
  jcohesion init                              # Creates jcohesion.toml in current directory
  jcohesion init --path .jcohesion/jcohesion.toml
  jcohesion init --force                      # Overwrite existing config file`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Value: "jcohesion.toml",
				Usage: "Config file to create",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite existing config file",
			},
		},
		Action: runInit,
	}
}

func runInit(c *cli.Context) error {
	outputPath := c.String("path")

	if _, err := os.Stat(outputPath); err == nil && !c.Bool("force") {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", outputPath)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := generateDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	color.Green("Created %s", outputPath)
	fmt.Fprintln(c.App.Writer, "Edit this file to choose metrics, method filters and thresholds.")
	return nil
}

func generateDefaultConfig() (string, error) {
	content, err := marshalConfig(config.DefaultConfig())
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	buf.WriteString("# jcohesion configuration\n")
	buf.WriteString("# [thresholds.<METRIC>] tables take mean and sigma for band highlighting.\n\n")
	buf.WriteString(content)
	return buf.String(), nil
}
