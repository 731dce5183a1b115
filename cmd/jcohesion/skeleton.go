package main

import (
	"errors"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/jcohesion/internal/output"
	"github.com/panbanda/jcohesion/pkg/analyzer"
)

func skeletonCmd() *cli.Command {
	return &cli.Command{
		Name:      "skeleton",
		Usage:     "Dump the extracted structure: packages, classes, attributes, methods and their operations",
		ArgsUsage: "[path...]",
		Flags:     inputFlags(),
		Action:    runSkeletonCmd,
	}
}

func runSkeletonCmd(c *cli.Context) error {
	cfg, err := appConfig(c)
	if err != nil {
		return err
	}

	tracker, display := newTracker(c, cfg)
	defer display.Finish()
	ctx := analyzer.WithTracker(c.Context, tracker)

	in, err := collectBlobs(ctx, c, cfg, getPaths(c))
	if errors.Is(err, errNoInput) {
		color.Yellow("No class files found")
		return nil
	}
	if err != nil {
		return err
	}

	built, err := buildSkeleton(ctx, c, cfg, in)
	if err != nil {
		display.Fail(err)
		return err
	}
	display.Finish()
	if err := narrow(built, c.StringSlice("class")); err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.NewSkeletonView(built.Skeleton))
}
