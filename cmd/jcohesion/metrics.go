package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/jcohesion/internal/cache"
	"github.com/panbanda/jcohesion/internal/output"
	"github.com/panbanda/jcohesion/internal/remote"
	"github.com/panbanda/jcohesion/pkg/analyzer"
	"github.com/panbanda/jcohesion/pkg/analyzer/cohesion"
	"github.com/panbanda/jcohesion/pkg/analyzer/skeleton"
	"github.com/panbanda/jcohesion/pkg/config"
	"github.com/panbanda/jcohesion/pkg/watch"
)

func metricsCmd() *cli.Command {
	return &cli.Command{
		Name:      "metrics",
		Aliases:   []string{"m"},
		Usage:     "Compute cohesion metrics for every class",
		ArgsUsage: "[path...]",
		Flags: append(analysisFlags(),
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Sort classes by this metric, highest first (default: class name)",
			},
			&cli.IntFlag{
				Name:  "top",
				Usage: "Show only the first N classes (0 = all)",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Recompute whenever class or jar files under the paths change",
			},
			&cli.DurationFlag{
				Name:  "debounce",
				Value: 500 * time.Millisecond,
				Usage: "Quiet period after the last change before recomputing",
			},
		),
		Action: runMetricsCmd,
	}
}

// analysisFlags select the inputs, metrics and method filter.
func analysisFlags() []cli.Flag {
	return append(inputFlags(),
		&cli.StringSliceFlag{
			Name:  "metric",
			Usage: fmt.Sprintf("Metric to compute, repeatable (default all: %s)", strings.Join(cohesion.Names(), ", ")),
		},
		&cli.BoolFlag{
			Name:  "include-ctors",
			Usage: "Count constructors and static initializers as methods",
		},
		&cli.BoolFlag{
			Name:  "include-static-methods",
			Usage: "Count static methods",
		},
		&cli.BoolFlag{
			Name:  "exclude-private-methods",
			Usage: "Leave private methods out",
		},
	)
}

// metricOptions merges explicitly set flags over the configured method
// filter.
func metricOptions(c *cli.Context, cfg *config.Config) cohesion.Options {
	opts := cohesion.Options{
		IncludeCtors:          cfg.Analysis.IncludeCtors,
		IncludeStaticMethods:  cfg.Analysis.IncludeStaticMethods,
		IncludePrivateMethods: cfg.Analysis.IncludePrivateMethods,
	}
	if c.IsSet("include-ctors") {
		opts.IncludeCtors = c.Bool("include-ctors")
	}
	if c.IsSet("include-static-methods") {
		opts.IncludeStaticMethods = c.Bool("include-static-methods")
	}
	if c.IsSet("exclude-private-methods") {
		opts.IncludePrivateMethods = !c.Bool("exclude-private-methods")
	}
	return opts
}

// selectedMetrics returns the requested metric names, validated.
func selectedMetrics(c *cli.Context, cfg *config.Config) ([]string, error) {
	names := c.StringSlice("metric")
	if len(names) == 0 {
		names = cfg.Analysis.Metrics
	}
	if len(names) == 0 {
		return cohesion.Names(), nil
	}
	var out []string
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			if _, err := cohesion.Lookup(part); err != nil {
				return nil, err
			}
			out = append(out, strings.ToUpper(strings.TrimSpace(part)))
		}
	}
	return out, nil
}

// metricsRun is one resolved invocation of the metrics command.
type metricsRun struct {
	cfg     *config.Config
	metrics []string
	sortBy  string
}

// newMetricsRun resolves the metric selection and sort order.
func newMetricsRun(c *cli.Context) (*metricsRun, error) {
	cfg, err := appConfig(c)
	if err != nil {
		return nil, err
	}
	metrics, err := selectedMetrics(c, cfg)
	if err != nil {
		return nil, err
	}
	sortBy := c.String("sort")
	if sortBy == "" {
		sortBy = cfg.Output.Sort
	}
	if sortBy != "" {
		if _, err := cohesion.Lookup(sortBy); err != nil {
			return nil, fmt.Errorf("--sort: %w", err)
		}
		sortBy = strings.ToUpper(strings.TrimSpace(sortBy))
	}
	return &metricsRun{cfg: cfg, metrics: metrics, sortBy: sortBy}, nil
}

func runMetricsCmd(c *cli.Context) error {
	run, err := newMetricsRun(c)
	if err != nil {
		return err
	}
	if c.Bool("watch") {
		return run.watch(c)
	}
	return run.once(c)
}

// analyze collects, extracts and measures the classes the command names.
// It returns a nil analysis when there is no input.
func (r *metricsRun) analyze(c *cli.Context) (*cohesion.Analysis, *skeleton.Result, error) {
	cfg := r.cfg
	tracker, display := newTracker(c, cfg)
	defer display.Finish()
	ctx := analyzer.WithTracker(c.Context, tracker)

	in, err := collectBlobs(ctx, c, cfg, getPaths(c))
	if err != nil {
		return nil, nil, err
	}

	built, err := buildSkeleton(ctx, c, cfg, in)
	if err != nil {
		display.Fail(err)
		return nil, nil, err
	}
	if err := narrow(built, c.StringSlice("class")); err != nil {
		return nil, nil, err
	}

	opts := []cohesion.Option{
		cohesion.WithOptions(metricOptions(c, cfg)),
		cohesion.WithMetrics(r.metrics...),
		cohesion.WithMaxWorkers(cfg.Analysis.Workers),
	}
	if cfg.Cache.Enabled && !c.Bool("no-cache") {
		rc, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
		if err != nil {
			slog.Warn("result cache unavailable", "dir", cfg.Cache.Dir, "error", err)
		} else {
			opts = append(opts, cohesion.WithCache(rc))
			defer func() {
				if stats, err := rc.GetStats(); err == nil {
					slog.Debug("result cache", "hits", stats.Hits, "misses", stats.Misses, "entries", stats.Entries)
				}
			}()
		}
	}

	an := cohesion.New(opts...)
	defer an.Close()

	tracker.Stage("metrics")
	analysis, err := an.Analyze(ctx, built.Skeleton.Models())
	if err != nil {
		display.Fail(err)
		return nil, nil, fmt.Errorf("analysis failed: %w", err)
	}

	if r.sortBy != "" {
		analysis.SortBy(r.sortBy)
	} else {
		analysis.SortByName()
	}
	return analysis, built, nil
}

func (r *metricsRun) once(c *cli.Context) error {
	analysis, built, err := r.analyze(c)
	if errors.Is(err, errNoInput) {
		color.Yellow("No class files found")
		return nil
	}
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, r.cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	view := output.NewMetricsView(analysis, r.cfg.Threshold, c.Int("top"))
	if err := formatter.Output(view); err != nil {
		return err
	}

	if built.Errors.HasErrors() && formatter.Format() == output.FormatText {
		formatter.Warning("%d inputs could not be read or parsed (run with --verbose for details)", built.Errors.Len())
	}
	return nil
}

// watch runs once, then again after every settled batch of changes until
// interrupted. Failed runs are reported and watching continues.
func (r *metricsRun) watch(c *cli.Context) error {
	if c.String("rev") != "" {
		return errors.New("--watch reads the working tree and cannot be combined with --rev")
	}
	paths := getPaths(c)
	for _, p := range paths {
		if src, err := remote.Parse(p); err != nil {
			return err
		} else if src != nil {
			return fmt.Errorf("--watch needs local paths, %s is remote", p)
		}
	}

	if err := r.once(c); err != nil {
		color.Red("Error: %v", err)
	}

	w, err := watch.NewWatcher(paths, r.cfg, c.Duration("debounce"))
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Stop()
	w.SetOutput(c.App.ErrWriter)
	slog.Debug("watching", "dirs", len(w.WatchedDirs()), "debounce", c.Duration("debounce"))

	w.SetCallback(func(changed []string) {
		slog.Debug("recomputing", "changed", len(changed))
		if err := r.once(c); err != nil {
			color.Red("Error: %v", err)
		}
	})

	if err := w.Start(c.Context); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
