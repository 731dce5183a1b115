package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/jcohesion/internal/fileproc"
	"github.com/panbanda/jcohesion/internal/locator"
	"github.com/panbanda/jcohesion/internal/output"
	"github.com/panbanda/jcohesion/internal/progress"
	"github.com/panbanda/jcohesion/internal/remote"
	"github.com/panbanda/jcohesion/internal/scanner"
	"github.com/panbanda/jcohesion/internal/vcs"
	"github.com/panbanda/jcohesion/pkg/analyzer"
	"github.com/panbanda/jcohesion/pkg/analyzer/skeleton"
	"github.com/panbanda/jcohesion/pkg/config"
	"github.com/panbanda/jcohesion/pkg/models"
	"github.com/panbanda/jcohesion/pkg/source"
)

// errNoInput is returned when the given paths hold no class files.
var errNoInput = errors.New("no .class or .jar files found")

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// inputFlags are shared by the commands that read classes.
func inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "skip-errors",
			Usage: "Skip classes that fail to parse instead of aborting",
		},
		&cli.StringFlag{
			Name:  "rev",
			Usage: "Read classes from a git revision instead of the working tree",
		},
		&cli.StringSliceFlag{
			Name:  "class",
			Usage: "Only report classes matching a qualified name, simple name or glob (org.example.**), repeatable",
		},
	}
}

// appConfig returns the configuration loaded in Before.
func appConfig(c *cli.Context) (*config.Config, error) {
	if err, ok := c.App.Metadata[metaConfigErr].(error); ok {
		return nil, err
	}
	if cfg, ok := c.App.Metadata[metaConfig].(*config.Config); ok {
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := c.String("format")
	if format == "" {
		format = cfg.Output.Format
	}
	return output.NewFormatter(output.ParseFormat(format), c.String("output"), cfg.Output.Color)
}

// newTracker wires an analyzer tracker to progress bars on stderr. Bars
// only draw when verbose output is on.
func newTracker(c *cli.Context, cfg *config.Config) (*analyzer.Tracker, *progress.Display) {
	display := progress.NewDisplay(os.Stderr, !(c.Bool("verbose") || cfg.Output.Verbose))
	return analyzer.NewTracker(display.Report), display
}

// skipErrors reports whether unreadable or unparseable inputs are skipped.
func skipErrors(c *cli.Context, cfg *config.Config) bool {
	return c.Bool("skip-errors") || cfg.Analysis.SkipParseErrors
}

// input is what collectBlobs read. Unreadable holds the paths skipped
// under --skip-errors.
type input struct {
	blobs      []source.Blob
	unreadable *fileproc.ProcessingErrors
}

// collectBlobs reads the inputs named by paths, from the working tree, a
// git revision (--rev) or a remote repository (owner/repo[@ref] or a URL).
func collectBlobs(ctx context.Context, c *cli.Context, cfg *config.Config, paths []string) (*input, error) {
	if len(paths) == 1 {
		src, err := remote.Parse(paths[0])
		if err != nil {
			return nil, err
		}
		if src != nil {
			return collectFromRemote(ctx, c, cfg, src)
		}
	}

	if rev := c.String("rev"); rev != "" {
		return collectFromRevision(ctx, c, cfg, paths, rev)
	}

	files, err := scanner.NewScanner(cfg).Scan(paths...)
	if err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}
	if len(files) == 0 {
		return nil, errNoInput
	}
	slog.Debug("scanned inputs", "files", len(files))
	return load(ctx, c, cfg, source.NewFilesystem(), files)
}

// load reads paths from src, skipping unreadable ones when errors are
// skipped.
func load(ctx context.Context, c *cli.Context, cfg *config.Config, src source.ContentSource, paths []string) (*input, error) {
	in := &input{unreadable: &fileproc.ProcessingErrors{}}
	var opts []source.LoadOption
	if skipErrors(c, cfg) {
		opts = append(opts, source.WithSkipUnreadable(in.unreadable.Add))
	}
	blobs, err := source.Load(ctx, src, paths, cfg.Analysis.Workers, opts...)
	if err != nil {
		return nil, err
	}
	in.blobs = blobs
	return in, nil
}

// collectFromRemote clones the repository and reads the requested revision,
// HEAD by default, so class paths stay repository relative.
func collectFromRemote(ctx context.Context, c *cli.Context, cfg *config.Config, src *remote.Source) (*input, error) {
	var progressOut io.Writer
	if c.Bool("verbose") {
		progressOut = os.Stderr
	}
	slog.Info("cloning remote repository", "url", src.URL, "ref", src.Ref)
	if err := src.Clone(ctx, progressOut); err != nil {
		return nil, err
	}
	defer func(dir string) {
		if err := src.Cleanup(); err != nil {
			slog.Warn("removing clone", "dir", dir, "error", err)
		}
	}(src.CloneDir)

	rev := c.String("rev")
	if rev == "" {
		rev = src.Ref
	}
	if rev == "" {
		rev = "HEAD"
	}
	return collectFromRevision(ctx, c, cfg, []string{src.CloneDir}, rev)
}

func collectFromRevision(ctx context.Context, c *cli.Context, cfg *config.Config, paths []string, rev string) (*input, error) {
	abs, err := filepath.Abs(paths[0])
	if err != nil {
		return nil, err
	}
	repo, err := vcs.DefaultOpener().PlainOpenWithDetect(abs)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	commit, err := repo.Revision(rev)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", rev, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading tree of %s: %w", rev, err)
	}

	var prefixes []string
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(repo.RepoPath(), a)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("%s is outside the repository", p)
		}
		prefixes = append(prefixes, filepath.ToSlash(rel))
	}

	src := source.NewTree(tree)
	all, err := src.Paths()
	if err != nil {
		return nil, err
	}
	var selected []string
	for _, p := range all {
		if cfg.ShouldExclude(p) || !underAny(p, prefixes) {
			continue
		}
		selected = append(selected, p)
	}
	if len(selected) == 0 {
		return nil, errNoInput
	}
	slog.Debug("selected revision inputs", "rev", rev, "commit", commit.Hash().String(), "files", len(selected))
	return load(ctx, c, cfg, src, selected)
}

func underAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p == "." || path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// buildSkeleton runs extraction with the configured error policy. Inputs
// skipped while reading count as failures alongside unparseable classes.
func buildSkeleton(ctx context.Context, c *cli.Context, cfg *config.Config, in *input) (*skeleton.Result, error) {
	opts := []skeleton.Option{
		skeleton.WithMaxWorkers(cfg.Analysis.Workers),
		skeleton.WithLogger(slog.Default().With("stage", "extract")),
	}
	if skipErrors(c, cfg) {
		opts = append(opts, skeleton.WithSkipErrors())
	}
	if tracker := analyzer.TrackerFromContext(ctx); tracker != nil {
		tracker.Stage("extract")
	}
	res, err := skeleton.New(opts...).Build(ctx, in.blobs)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	if in.unreadable.HasErrors() {
		if res.Errors == nil {
			res.Errors = &fileproc.ProcessingErrors{}
		}
		for _, e := range in.unreadable.Errors {
			res.Errors.Add(e.Path, e.Err)
		}
	}
	if res.Errors.HasErrors() {
		slog.Warn("skipped unreadable or unparseable inputs", "count", res.Errors.Len())
		for _, e := range res.Errors.Errors {
			slog.Debug("skipped input", "path", e.Path, "error", e.Err)
		}
	}
	slog.Debug("extracted classes", "classes", res.Skeleton.Len(),
		"excluded", res.Excluded, "duplicates", res.Duplicates)
	return res, nil
}

// narrow keeps only the classes the --class focuses select.
func narrow(res *skeleton.Result, focuses []string) error {
	if len(focuses) == 0 {
		return nil
	}
	kept, err := locator.Select(focuses, res.Skeleton.Classes())
	if err != nil {
		return err
	}
	res.Skeleton = models.NewSkeleton(kept)
	return nil
}
