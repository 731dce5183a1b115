package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/jcohesion/internal/output"
	"github.com/panbanda/jcohesion/internal/remote"
	"github.com/panbanda/jcohesion/internal/report"
	"github.com/panbanda/jcohesion/internal/vcs"
)

func reportCmd() *cli.Command {
	dataFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:     "data",
			Aliases:  []string{"d"},
			Usage:    "Report data directory",
			Required: true,
		}
	}

	return &cli.Command{
		Name:  "report",
		Usage: "Generate and render HTML cohesion reports",
		Description: `The report workflow consists of:
  1. generate - Compute metrics and write JSON data files
  2. validate - Check the data files against their schema
  3. render   - Turn the data files into a self-contained HTML page
  4. serve    - Serve the HTML, re-rendering on every request`,
		Subcommands: []*cli.Command{
			{
				Name:      "generate",
				Usage:     "Compute metrics and write JSON data files",
				ArgsUsage: "[path...]",
				Flags: append(analysisFlags(),
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Output directory (default: ./jcohesion-report-<date>/)",
					},
				),
				Action: runReportGenerate,
			},
			{
				Name:   "validate",
				Usage:  "Validate report data files",
				Flags:  []cli.Flag{dataFlag()},
				Action: runReportValidate,
			},
			{
				Name:  "render",
				Usage: "Render report data into a self-contained HTML file",
				Flags: []cli.Flag{
					dataFlag(),
					&cli.StringFlag{
						Name:  "html",
						Value: "jcohesion-report.html",
						Usage: "Output HTML file",
					},
					&cli.BoolFlag{
						Name:  "skip-validate",
						Usage: "Skip validation before rendering",
					},
				},
				Action: runReportRender,
			},
			{
				Name:  "serve",
				Usage: "Serve the rendered report, re-rendering on each request",
				Flags: []cli.Flag{
					dataFlag(),
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   8080,
						Usage:   "Port number",
					},
				},
				Action: runReportServe,
			},
		},
	}
}

func runReportGenerate(c *cli.Context) error {
	run, err := newMetricsRun(c)
	if err != nil {
		return err
	}

	outputDir := c.String("data")
	if outputDir == "" {
		outputDir = fmt.Sprintf("jcohesion-report-%s", time.Now().Format("2006-01-02"))
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	analysis, _, err := run.analyze(c)
	if errors.Is(err, errNoInput) {
		color.Yellow("No class files found")
		return nil
	}
	if err != nil {
		return err
	}

	paths := getPaths(c)
	meta := report.Metadata{
		Repository:       getRepoName(paths[0]),
		GeneratedAt:      time.Now().UTC(),
		JcohesionVersion: version,
		Paths:            paths,
		Revision:         c.String("rev"),
	}
	if err := writeJSON(filepath.Join(outputDir, report.MetadataFile), meta); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	view := output.NewMetricsView(analysis, run.cfg.Threshold, 0)
	if err := writeJSON(filepath.Join(outputDir, report.MetricsFile), view.RenderData()); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}

	color.Green("Report data written to %s", outputDir)
	fmt.Fprintf(c.App.Writer, "Render it with: jcohesion report render --data %s\n", outputDir)
	return nil
}

func runReportValidate(c *cli.Context) error {
	errs := report.Validate(c.String("data"))
	if len(errs) > 0 {
		color.Red("Validation failed:")
		for _, e := range errs {
			fmt.Fprintf(c.App.Writer, "  - %s\n", e)
		}
		return fmt.Errorf("validation failed with %d error(s)", len(errs))
	}

	fmt.Fprintln(c.App.Writer, "Validation passed")
	return nil
}

func runReportRender(c *cli.Context) error {
	dataDir := c.String("data")
	outputPath := c.String("html")

	if !c.Bool("skip-validate") {
		if err := runReportValidate(c); err != nil {
			return err
		}
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	if err := renderer.RenderToFile(dataDir, outputPath); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	color.Green("Report rendered: %s", outputPath)
	return nil
}

func runReportServe(c *cli.Context) error {
	dataDir := c.String("data")
	if err := runReportValidate(c); err != nil {
		return err
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Int("port")),
		Handler:           reportHandler(renderer, dataDir),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-c.Context.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	fmt.Fprintf(c.App.Writer, "Serving report at http://localhost%s\n", srv.Addr)
	fmt.Fprintln(c.App.Writer, "Press Ctrl+C to stop")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// htmlRenderer renders a report data directory as HTML.
type htmlRenderer interface {
	Render(dataDir string, w io.Writer) error
}

// reportHandler re-renders the report on each request. The page is
// rendered in full before anything is written, so a template failure
// yields a clean 500 instead of a truncated page.
func reportHandler(renderer htmlRenderer, dataDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := renderer.Render(dataDir, &buf); err != nil {
			http.Error(w, fmt.Sprintf("render error: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	})
}

// getRepoName names the repository holding path: owner/repo from a remote
// reference or the origin remote, else the repository or directory name.
func getRepoName(path string) string {
	if src, _ := remote.Parse(path); src != nil {
		if name := nameFromURL(src.URL); name != "" {
			return name
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	repo, err := vcs.DefaultOpener().PlainOpenWithDetect(abs)
	if err != nil {
		return filepath.Base(abs)
	}
	if url, err := repo.RemoteURL("origin"); err == nil {
		if name := nameFromURL(url); name != "" {
			return name
		}
	}
	return filepath.Base(repo.RepoPath())
}

// nameFromURL returns the last two path segments of a git URL.
func nameFromURL(url string) string {
	url = strings.TrimSuffix(strings.TrimSuffix(url, "/"), ".git")
	url = strings.ReplaceAll(url, ":", "/")
	parts := strings.Split(url, "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return ""
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
