package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/jcohesion/pkg/config"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

const (
	metaConfig    = "config"
	metaConfigErr = "configErr"
	metaSource    = "configSource"
)

func newApp() *cli.App {
	return &cli.App{
		Name:     "jcohesion",
		Usage:    "Class cohesion metrics for compiled JVM classes",
		Version:  version,
		Metadata: make(map[string]interface{}),
		Description: `jcohesion reads .class files and jars, extracts each class's fields,
methods, field accesses and calls, and computes cohesion metrics:
LCOM, LCOM2-5, CAMC, MMAC, NHD, OCC, CCM, TCC, LCC, PCC and SCOM.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{config.EnvConfigPath},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, yaml, toon (default from config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable the result cache",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging and progress bars",
			},
		},
		Before: func(c *cli.Context) error {
			_ = godotenv.Load()

			var opts []config.LoadOption
			if path := c.String("config"); path != "" {
				opts = append(opts, config.WithPath(path))
			}
			res, err := config.LoadConfig(opts...)
			cfg := config.DefaultConfig()
			if err != nil {
				c.App.Metadata[metaConfigErr] = err
			} else {
				cfg = res.Config
				c.App.Metadata[metaSource] = res.Source
			}
			c.App.Metadata[metaConfig] = cfg
			configureLogger(cfg.Log, c.Bool("verbose") || cfg.Output.Verbose)
			return nil
		},
		Commands: []*cli.Command{
			metricsCmd(),
			skeletonCmd(),
			reportCmd(),
			initCmd(),
			configCmd(),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
