package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/jcohesion/internal/report"
	"github.com/panbanda/jcohesion/internal/testutil"
	"github.com/panbanda/jcohesion/pkg/config"
)

type metricsReport struct {
	TotalClasses int `json:"total_classes"`
	Classes      []struct {
		Class   string `json:"class"`
		Metrics []struct {
			Metric string   `json:"metric"`
			Value  *float64 `json:"value"`
		} `json:"metrics"`
	} `json:"classes"`
}

func (r metricsReport) value(t *testing.T, class, metric string) *float64 {
	t.Helper()
	for _, c := range r.Classes {
		if c.Class != class {
			continue
		}
		for _, m := range c.Metrics {
			if m.Metric == metric {
				return m.Value
			}
		}
	}
	t.Fatalf("no %s value for %s", metric, class)
	return nil
}

// runApp runs the CLI from dir, isolated from any config in the caller's
// working directory.
func runApp(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(dir)
	t.Setenv(config.EnvConfigPath, "")

	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	app.ErrWriter = &buf
	err := app.Run(append([]string{"jcohesion"}, args...))
	return buf.String(), err
}

func readReport(t *testing.T, path string) metricsReport {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	var r metricsReport
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("decoding report: %v\n%s", err, data)
	}
	return r
}

func TestGetPaths(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{"no args defaults to current dir", nil, []string{"."}},
		{"single path", []string{"/foo/bar"}, []string{"/foo/bar"}},
		{"multiple paths", []string{"/foo", "/bar"}, []string{"/foo", "/bar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			app := &cli.App{
				Action: func(c *cli.Context) error {
					got = getPaths(c)
					return nil
				},
			}
			if err := app.Run(append([]string{"test"}, tt.args...)); err != nil {
				t.Fatal(err)
			}
			if strings.Join(got, ",") != strings.Join(tt.expected, ",") {
				t.Errorf("getPaths() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"loud", slog.LevelWarn},
	}
	for _, tt := range tests {
		if got := parseSlogLevel(tt.in, slog.LevelWarn); got != tt.want {
			t.Errorf("parseSlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConfigureLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "jcohesion.log")
	defer slog.SetDefault(slog.Default())

	logger := configureLogger(config.LogConfig{Level: "info", File: path, MaxSize: 1}, false)
	logger.Info("hello", "n", 1)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "msg=hello") {
		t.Errorf("log file = %q, want message", data)
	}
}

func TestMetricsCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClassTree(t, filepath.Join(dir, "classes"), testutil.FixtureSet())
	out := filepath.Join(dir, "report.json")

	if _, err := runApp(t, dir, "-f", "json", "-o", out, "metrics",
		"--include-ctors", "--include-static-methods", "classes"); err != nil {
		t.Fatalf("metrics failed: %v", err)
	}

	r := readReport(t, out)
	if r.TotalClasses != len(testutil.FixtureSet()) {
		t.Errorf("total_classes = %d, want %d", r.TotalClasses, len(testutil.FixtureSet()))
	}

	checks := []struct {
		class, metric string
		want          float64
	}{
		{"Bar", "LCOM5", 13.0 / 16.0},
		{"Bar", "MMAC", 0.1},
		{"Bar", "NHD", 0.4},
		{"Foo", "CAMC", 4.0 / 6.0},
		{"Foo", "OCC", 0.5},
		{"IndirectlyRelatedPairs", "LCC", 1},
		{"OverloadMethods", "SCOM", 0.6},
	}
	for _, c := range checks {
		got := r.value(t, c.class, c.metric)
		if got == nil {
			t.Errorf("%s %s = null, want %v", c.class, c.metric, c.want)
			continue
		}
		if math.Abs(*got-c.want) > 1e-9 {
			t.Errorf("%s %s = %v, want %v", c.class, c.metric, *got, c.want)
		}
	}

	if got := r.value(t, "NoMethods", "NHD"); got != nil {
		t.Errorf("NoMethods NHD = %v, want null", *got)
	}
}

func TestMetricsCommand_SelectedMetrics(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClassTree(t, dir, testutil.FixtureSet())
	out := filepath.Join(dir, "report.json")

	if _, err := runApp(t, dir, "-f", "json", "-o", out, "metrics", "--metric", "tcc,lcc"); err != nil {
		t.Fatalf("metrics failed: %v", err)
	}

	r := readReport(t, out)
	for _, c := range r.Classes {
		if len(c.Metrics) != 2 {
			t.Fatalf("%s has %d metrics, want 2", c.Class, len(c.Metrics))
		}
		if c.Metrics[0].Metric != "TCC" || c.Metrics[1].Metric != "LCC" {
			t.Errorf("%s metrics = %s,%s", c.Class, c.Metrics[0].Metric, c.Metrics[1].Metric)
		}
	}
}

func TestMetricsCommand_UnknownMetric(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClassTree(t, dir, testutil.FixtureSet())

	_, err := runApp(t, dir, "metrics", "--metric", "LCOM9")
	if err == nil {
		t.Fatal("expected error for unknown metric")
	}
	if !strings.Contains(err.Error(), "LCOM9") {
		t.Errorf("error = %v, want metric name", err)
	}
}

func TestMetricsCommand_UnknownSort(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClassTree(t, dir, testutil.FixtureSet())

	_, err := runApp(t, dir, "metrics", "--sort", "size")
	if err == nil || !strings.Contains(err.Error(), "--sort") {
		t.Errorf("error = %v, want --sort error", err)
	}
}

func TestMetricsCommand_NoInput(t *testing.T) {
	dir := t.TempDir()
	if _, err := runApp(t, dir, "metrics"); err != nil {
		t.Errorf("empty directory should not fail: %v", err)
	}
}

func TestMetricsCommand_ParseError(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClassTree(t, dir, map[string][]byte{
		"Foo.class":    testutil.Foo(),
		"Broken.class": {0xCA, 0xFE, 0xBA, 0xBE, 0x00},
	})
	out := filepath.Join(dir, "report.json")

	if _, err := runApp(t, dir, "-f", "json", "-o", out, "metrics"); err == nil {
		t.Error("expected extraction failure without --skip-errors")
	}

	if _, err := runApp(t, dir, "-f", "json", "-o", out, "metrics", "--skip-errors"); err != nil {
		t.Fatalf("metrics --skip-errors failed: %v", err)
	}
	if r := readReport(t, out); r.TotalClasses != 1 {
		t.Errorf("total_classes = %d, want 1", r.TotalClasses)
	}
}

func TestMetricsCommand_BrokenJar(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClassTree(t, dir, map[string][]byte{
		"Foo.class": testutil.Foo(),
		"lib.jar":   []byte("not a zip"),
	})
	out := filepath.Join(dir, "report.json")

	_, err := runApp(t, dir, "-f", "json", "-o", out, "metrics", "--metric", "LCOM2")
	if err == nil || !strings.Contains(err.Error(), "lib.jar") {
		t.Fatalf("expected a lib.jar read failure without --skip-errors, got %v", err)
	}

	testutil.WriteFile(t, filepath.Join(dir, "Broken.class"), []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00})
	if _, err := runApp(t, dir, "-f", "json", "-o", out, "metrics", "--metric", "LCOM2", "--skip-errors"); err != nil {
		t.Fatalf("metrics --skip-errors failed: %v", err)
	}
	r := readReport(t, out)
	if r.TotalClasses != 1 {
		t.Errorf("total_classes = %d, want 1", r.TotalClasses)
	}
}

func TestMetricsCommand_ConfigThresholds(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClassTree(t, filepath.Join(dir, "classes"), testutil.FixtureSet())
	cfgPath := filepath.Join(dir, "jcohesion.toml")
	testutil.WriteFile(t, cfgPath, []byte(`
[analysis]
metrics = ["TCC"]

[thresholds.TCC]
mean = 0.2
sigma = 0.1
`))
	out := filepath.Join(dir, "report.md")

	if _, err := runApp(t, dir, "-f", "markdown", "-o", out, "metrics", "classes"); err != nil {
		t.Fatalf("metrics failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "TCC") {
		t.Errorf("markdown report missing TCC column:\n%s", data)
	}
	if strings.Contains(string(data), "LCOM5") {
		t.Errorf("markdown report should only hold TCC:\n%s", data)
	}
}

func TestMetricsCommand_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClassTree(t, dir, testutil.FixtureSet())
	testutil.WriteFile(t, filepath.Join(dir, "jcohesion.toml"), []byte("[output]\nformat = \"pdf\"\n"))

	if _, err := runApp(t, dir, "metrics"); err == nil {
		t.Error("expected invalid config to fail the command")
	}
}

func TestMetricsCommand_Revision(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	w, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	testutil.WriteFile(t, filepath.Join(dir, "classes", "Bar.class"), testutil.Bar())
	if _, err := w.Add("classes/Bar.class"); err != nil {
		t.Fatal(err)
	}
	hash, err := w.Commit("Add Bar", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}

	// The working tree now holds an extra class the commit does not.
	testutil.WriteFile(t, filepath.Join(dir, "classes", "Foo.class"), testutil.Foo())
	out := filepath.Join(t.TempDir(), "report.json")

	if _, err := runApp(t, dir, "-f", "json", "-o", out, "metrics", "--rev", hash.String(), "classes"); err != nil {
		t.Fatalf("metrics --rev failed: %v", err)
	}
	r := readReport(t, out)
	if r.TotalClasses != 1 || r.Classes[0].Class != "Bar" {
		t.Errorf("revision report = %+v, want only Bar", r)
	}
}

func TestMetricsCommand_Remote(t *testing.T) {
	origin := t.TempDir()
	repo, err := git.PlainInit(origin, false)
	if err != nil {
		t.Fatal(err)
	}
	w, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	testutil.WriteFile(t, filepath.Join(origin, "lib", "Foo.class"), testutil.Foo())
	if _, err := w.Add("lib/Foo.class"); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Commit("Add Foo", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	}); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "report.json")
	if _, err := runApp(t, dir, "-f", "json", "-o", out, "metrics", "file://"+origin); err != nil {
		t.Fatalf("metrics on remote failed: %v", err)
	}
	r := readReport(t, out)
	if r.TotalClasses != 1 || r.Classes[0].Class != "Foo" {
		t.Errorf("remote report = %+v, want only Foo", r)
	}
}

func TestMetricsCommand_ClassFilter(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClassTree(t, dir, testutil.FixtureSet())
	out := filepath.Join(dir, "report.json")

	if _, err := runApp(t, dir, "-f", "json", "-o", out, "metrics", "--class", "Foo", "--class", "Bar"); err != nil {
		t.Fatalf("metrics --class failed: %v", err)
	}
	r := readReport(t, out)
	if r.TotalClasses != 2 {
		t.Fatalf("total_classes = %d, want 2", r.TotalClasses)
	}
	if r.Classes[0].Class != "Bar" || r.Classes[1].Class != "Foo" {
		t.Errorf("classes = %s, %s; want Bar, Foo", r.Classes[0].Class, r.Classes[1].Class)
	}

	if _, err := runApp(t, dir, "metrics", "--class", "Nope"); err == nil {
		t.Error("expected error for a focus matching nothing")
	}
}

func TestMetricsCommand_WatchRejectsRevision(t *testing.T) {
	dir := t.TempDir()
	_, err := runApp(t, dir, "metrics", "--watch", "--rev", "HEAD")
	if err == nil || !strings.Contains(err.Error(), "--watch") {
		t.Errorf("error = %v, want --watch conflict", err)
	}
}

func TestSkeletonCommand(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClassTree(t, dir, map[string][]byte{"Foo.class": testutil.Foo()})
	out := filepath.Join(dir, "skeleton.txt")

	if _, err := runApp(t, dir, "-o", out, "skeleton"); err != nil {
		t.Fatalf("skeleton failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"(default package)", "Foo", "attr"} {
		if !strings.Contains(text, want) {
			t.Errorf("skeleton output missing %q:\n%s", want, text)
		}
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	if _, err := runApp(t, dir, "init"); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	path := filepath.Join(dir, "jcohesion.toml")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %q, want text", cfg.Output.Format)
	}

	if _, err := runApp(t, dir, "init"); err == nil {
		t.Error("second init without --force should fail")
	}
	if _, err := runApp(t, dir, "init", "--force"); err != nil {
		t.Errorf("init --force failed: %v", err)
	}
}

func TestInitCommand_NestedPath(t *testing.T) {
	dir := t.TempDir()
	if _, err := runApp(t, dir, "init", "--path", ".jcohesion/jcohesion.toml"); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".jcohesion", "jcohesion.toml")); err != nil {
		t.Errorf("nested config not created: %v", err)
	}
}

func TestConfigCommand_Show(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "jcohesion.toml"), []byte("[output]\nformat = \"yaml\"\n"))

	out, err := runApp(t, dir, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "jcohesion.toml") {
		t.Errorf("output should name the source file:\n%s", out)
	}
	if !strings.Contains(out, `"yaml"`) {
		t.Errorf("output should show the configured format:\n%s", out)
	}
}

func TestConfigCommand_Validate(t *testing.T) {
	dir := t.TempDir()
	if _, err := runApp(t, dir, "config", "validate"); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	bad := filepath.Join(dir, "bad.toml")
	testutil.WriteFile(t, bad, []byte("[analysis]\nworkers = -1\n"))
	if _, err := runApp(t, dir, "-c", bad, "config", "validate"); err == nil {
		t.Error("expected validation error")
	}
}

func TestReportWorkflow(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClassTree(t, filepath.Join(dir, "classes"), testutil.FixtureSet())
	dataDir := filepath.Join(dir, "data")

	if _, err := runApp(t, dir, "report", "generate", "--data", dataDir, "--metric", "TCC,LCOM5", "classes"); err != nil {
		t.Fatalf("report generate failed: %v", err)
	}
	for _, name := range []string{"metadata.json", "metrics.json"} {
		if _, err := os.Stat(filepath.Join(dataDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	out, err := runApp(t, dir, "report", "validate", "--data", dataDir)
	if err != nil {
		t.Fatalf("report validate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Validation passed") {
		t.Errorf("validate output = %q", out)
	}

	html := filepath.Join(dir, "report.html")
	if _, err := runApp(t, dir, "report", "render", "--data", dataDir, "--html", html); err != nil {
		t.Fatalf("report render failed: %v", err)
	}
	content, err := os.ReadFile(html)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Cohesion report", "LCOM5", "TCC", "IndirectlyRelatedPairs"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
}

func TestReportValidate_Missing(t *testing.T) {
	dir := t.TempDir()
	if _, err := runApp(t, dir, "report", "validate", "--data", filepath.Join(dir, "nope")); err == nil {
		t.Error("expected validation failure for a missing data directory")
	}
}

func TestReportHandler(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClassTree(t, dir, map[string][]byte{"Foo.class": testutil.Foo()})
	dataDir := filepath.Join(dir, "data")
	if _, err := runApp(t, dir, "report", "generate", "--data", dataDir); err != nil {
		t.Fatalf("report generate failed: %v", err)
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	reportHandler(renderer, dataDir).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Foo") {
		t.Error("served report should list Foo")
	}

	rec = httptest.NewRecorder()
	reportHandler(renderer, filepath.Join(dir, "missing")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 for missing data", rec.Code)
	}
}

// failingRenderer writes part of a page and then fails, as a template
// error during execution does.
type failingRenderer struct{}

func (failingRenderer) Render(_ string, w io.Writer) error {
	fmt.Fprint(w, "<!DOCTYPE html><html><body><table>")
	return errors.New("template: row: executing \"row\"")
}

func TestReportHandler_NoPartialPage(t *testing.T) {
	rec := httptest.NewRecorder()
	reportHandler(failingRenderer{}, t.TempDir()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<html>") {
		t.Errorf("error response carries a partial page: %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want the plain-text error type", ct)
	}
}

func TestNameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/acme/widgets.git", "acme/widgets"},
		{"git@github.com:acme/widgets.git", "acme/widgets"},
		{"https://gitlab.com/group/sub/project/", "sub/project"},
		{"widgets", ""},
	}
	for _, tt := range tests {
		if got := nameFromURL(tt.url); got != tt.want {
			t.Errorf("nameFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
