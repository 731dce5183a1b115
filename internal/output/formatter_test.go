package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func bufferFormatter(format Format, buf *bytes.Buffer) *Formatter {
	return &Formatter{format: format, out: buf, notices: buf}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"TEXT", FormatText},
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"yaml", FormatYAML},
		{"yml", FormatYAML},
		{"toon", FormatTOON},
		{"TOON", FormatTOON},
		{"", FormatText},
		{"html", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewFormatterWithFile(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "report.json")

	f, err := NewFormatter(FormatJSON, outputPath, true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	if f.colored {
		t.Error("file output should never be colored")
	}
	if f.Format() != FormatJSON {
		t.Errorf("Format() = %q, want json", f.Format())
	}
	if err := f.Output(map[string]int{"classes": 2}); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"classes": 2`) {
		t.Errorf("file content = %s", data)
	}
}

func TestNewFormatterInvalidPath(t *testing.T) {
	if _, err := NewFormatter(FormatText, "/nonexistent/dir/out.txt", false); err == nil {
		t.Error("NewFormatter() should fail for an unwritable path")
	}
}

func TestTableRenderText(t *testing.T) {
	table := NewTable(
		"Summary",
		[]string{"Metric", "Mean"},
		[][]string{{"LCOM5", "0.8125"}, {"TCC", "NaN"}},
		[]string{"2 metrics", ""},
		nil,
	)

	var buf bytes.Buffer
	if err := table.RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	output := strings.ToLower(buf.String())
	for _, want := range []string{"summary", "metric", "mean", "lcom5", "0.8125", "nan", "2 metrics"} {
		if !strings.Contains(output, want) {
			t.Errorf("RenderText() missing %q in output:\n%s", want, output)
		}
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	table := NewTable("Classes", []string{"Class", "LCOM"}, [][]string{{"com.example.Foo", "1.0000"}}, nil, nil)

	var buf bytes.Buffer
	if err := table.RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	want := "## Classes\n\n| Class | LCOM |\n| --- | --- |\n| com.example.Foo | 1.0000 |\n\n"
	if buf.String() != want {
		t.Errorf("RenderMarkdown() =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestTableRenderData(t *testing.T) {
	table := NewTable("", []string{"Metric", "Value"}, [][]string{{"CAMC", "0.6667"}}, nil, nil)
	rows, ok := table.RenderData().([]map[string]string)
	if !ok || len(rows) != 1 || rows[0]["Metric"] != "CAMC" || rows[0]["Value"] != "0.6667" {
		t.Errorf("RenderData() = %#v", table.RenderData())
	}

	wrapped := NewTable("", nil, nil, nil, map[string]int{"n": 1})
	if _, ok := wrapped.RenderData().(map[string]int); !ok {
		t.Error("RenderData() should prefer the wrapped data")
	}
}

func TestSectionRender(t *testing.T) {
	s := &Section{
		Title:    "com.example",
		Sections: []Section{{Title: "Foo", Content: "  attr int a"}},
	}

	var text bytes.Buffer
	if err := s.RenderText(&text, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text.String(), "com.example\n===========") ||
		!strings.Contains(text.String(), "Foo\n---") {
		t.Errorf("RenderText() =\n%s", text.String())
	}

	var md bytes.Buffer
	if err := s.RenderMarkdown(&md); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md.String(), "## com.example") || !strings.Contains(md.String(), "### Foo") {
		t.Errorf("RenderMarkdown() =\n%s", md.String())
	}
}

func TestReportRenderData(t *testing.T) {
	r := &Report{
		Title: "Run",
		Sections: []Renderable{
			&Section{Title: "A", Content: "a"},
			NewTable("", []string{"X"}, [][]string{{"1"}}, nil, nil),
		},
	}
	data, ok := r.RenderData().(map[string]any)
	if !ok {
		t.Fatalf("RenderData() = %T", r.RenderData())
	}
	if data["title"] != "Run" {
		t.Errorf("title = %v", data["title"])
	}
	if parts, _ := data["sections"].([]any); len(parts) != 2 {
		t.Errorf("sections = %v", data["sections"])
	}
}

func TestFormatterOutputStructured(t *testing.T) {
	data := struct {
		Class string   `json:"class" yaml:"class" toon:"class"`
		Value *float64 `json:"value" yaml:"value" toon:"value"`
	}{Class: "com.example.Foo"}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := bufferFormatter(FormatJSON, &buf).Output(data); err != nil {
			t.Fatal(err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["class"] != "com.example.Foo" || decoded["value"] != nil {
			t.Errorf("decoded = %v", decoded)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := bufferFormatter(FormatYAML, &buf).Output(data); err != nil {
			t.Fatal(err)
		}
		var decoded map[string]any
		if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid YAML: %v", err)
		}
		if decoded["class"] != "com.example.Foo" {
			t.Errorf("decoded = %v", decoded)
		}
		if v, ok := decoded["value"]; !ok || v != nil {
			t.Errorf("value = %v, want null", v)
		}
	})

	t.Run("toon", func(t *testing.T) {
		var buf bytes.Buffer
		if err := bufferFormatter(FormatTOON, &buf).Output(data); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "com.example.Foo") {
			t.Errorf("TOON output = %s", buf.String())
		}
	})

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		if err := bufferFormatter(FormatMarkdown, &buf).Output(data); err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(buf.String(), "```json\n") {
			t.Errorf("markdown raw output = %s", buf.String())
		}
	})
}

func TestFormatterWarningGoesToNotices(t *testing.T) {
	var out, notices bytes.Buffer
	f := &Formatter{format: FormatText, out: &out, notices: &notices}
	f.Warning("skipped %d classes", 2)

	if out.Len() != 0 {
		t.Errorf("warning leaked into the report: %q", out.String())
	}
	if got := notices.String(); got != "warning: skipped 2 classes\n" {
		t.Errorf("notices = %q", got)
	}
}

func TestBandColorPlainWithinBand(t *testing.T) {
	if got := BandColor(BandWithin, "0.5000"); got != "0.5000" {
		t.Errorf("BandColor(within) = %q", got)
	}
	if got := BandColor(BandNone, "NaN"); got != "NaN" {
		t.Errorf("BandColor(none) = %q", got)
	}
}
