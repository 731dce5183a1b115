package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/jcohesion/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Validate a configuration file",
				Description: `Validates a jcohesion configuration file against its schema.

Examples:
  jcohesion config validate                      # Validates default config locations
  jcohesion -c jcohesion.toml config validate    # Validates specific file`,
				Action: runConfigValidate,
			},
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: runConfigShow,
			},
		},
		Action: runConfigShow,
	}
}

func runConfigValidate(c *cli.Context) error {
	if err, ok := c.App.Metadata[metaConfigErr].(error); ok {
		color.Red("Configuration validation failed:")
		fmt.Fprintf(c.App.Writer, "  - %s\n", err)
		return err
	}

	if source, _ := c.App.Metadata[metaSource].(string); source != "" {
		color.Green("Configuration valid: %s", source)
	} else {
		color.Yellow("No config file found. Default configuration is valid.")
	}
	return nil
}

func runConfigShow(c *cli.Context) error {
	cfg, err := appConfig(c)
	if err != nil {
		return err
	}

	if source, _ := c.App.Metadata[metaSource].(string); source != "" {
		fmt.Fprintf(c.App.Writer, "# Configuration from: %s\n\n", source)
	} else {
		fmt.Fprintln(c.App.Writer, "# Default configuration (no config file found)")
	}

	content, err := marshalConfig(cfg)
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, content)
	return nil
}

func marshalConfig(cfg *config.Config) (string, error) {
	content, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(content), nil
}
