package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed template.html metrics.schema.json
var assetsFS embed.FS

// Data file names inside a report directory.
const (
	MetadataFile = "metadata.json"
	MetricsFile  = "metrics.json"
)

const metricsSchemaURL = "https://jcohesion.dev/schemas/metrics.json"

// RenderData contains all data needed to render the report.
type RenderData struct {
	Metadata Metadata
	Metrics  *MetricsData
	Headers  []string
	Packages []PackageGroup
	Bands    []BandCount
}

// Renderer handles HTML report generation.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer creates a new renderer with the embedded template.
func NewRenderer() (*Renderer, error) {
	printer := message.NewPrinter(language.English)
	funcMap := template.FuncMap{
		"value": func(v *float64) string {
			if v == nil {
				return "NaN"
			}
			return fmt.Sprintf("%.4f", *v)
		},
		"bandClass": func(band string) string {
			if band == "" {
				return "band-none"
			}
			return "band-" + band
		},
		"title": cases.Title(language.English).String,
		"lower": strings.ToLower,
		"truncatePath": func(s string, n int) string {
			if len(s) <= n {
				return s
			}
			return "..." + s[len(s)-n+3:]
		},
		"percent": func(a, b int) float64 {
			if b == 0 {
				return 0
			}
			return float64(a) / float64(b) * 100
		},
		"json": func(v interface{}) template.JS {
			b, _ := json.Marshal(v)
			return template.JS(b)
		},
		"num": func(n int) string {
			return printer.Sprintf("%d", n)
		},
		"packageName": func(name string) string {
			if name == "" {
				return "(default package)"
			}
			return name
		},
	}

	tmplContent, err := assetsFS.ReadFile("template.html")
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("report").Funcs(funcMap).Parse(string(tmplContent))
	if err != nil {
		return nil, err
	}

	return &Renderer{tmpl: tmpl}, nil
}

// Render generates HTML from the data directory and writes to the output.
func (r *Renderer) Render(dataDir string, w io.Writer) error {
	data, err := LoadData(dataDir)
	if err != nil {
		return err
	}

	return r.tmpl.Execute(w, data)
}

// RenderToFile generates HTML and writes it to a file.
func (r *Renderer) RenderToFile(dataDir, outputPath string) error {
	// A failed render leaves no partial file.
	var buf bytes.Buffer
	if err := r.Render(dataDir, &buf); err != nil {
		return err
	}
	return os.WriteFile(outputPath, buf.Bytes(), 0o644)
}

// LoadData reads a report directory and derives the per-package and
// per-band views the template needs.
func LoadData(dataDir string) (*RenderData, error) {
	data := &RenderData{}

	if err := loadJSON(filepath.Join(dataDir, MetadataFile), &data.Metadata); err != nil {
		return nil, err
	}

	metrics := &MetricsData{}
	if err := loadJSON(filepath.Join(dataDir, MetricsFile), metrics); err != nil {
		return nil, err
	}
	data.Metrics = metrics

	for _, s := range metrics.Summary {
		data.Headers = append(data.Headers, s.Metric)
	}

	index := make(map[string]int)
	bands := make(map[string]*BandCount)
	for _, name := range data.Headers {
		bands[name] = &BandCount{Metric: name}
	}
	for _, row := range metrics.Classes {
		pkg := row.Package()
		i, ok := index[pkg]
		if !ok {
			i = len(data.Packages)
			index[pkg] = i
			data.Packages = append(data.Packages, PackageGroup{Name: pkg})
		}
		data.Packages[i].Classes = append(data.Packages[i].Classes, row)

		for _, m := range row.Metrics {
			b, ok := bands[m.Metric]
			if !ok {
				continue
			}
			switch m.Band {
			case "below":
				b.Below++
			case "within":
				b.Within++
			case "above":
				b.Above++
			}
		}
	}
	for _, name := range data.Headers {
		if b := bands[name]; b.Total() > 0 {
			data.Bands = append(data.Bands, *b)
		}
	}

	return data, nil
}

// Validate checks that the data directory holds the files Render needs and
// that metrics.json matches its schema. It returns every problem found.
func Validate(dataDir string) []error {
	var errs []error

	var meta Metadata
	if err := loadJSON(filepath.Join(dataDir, MetadataFile), &meta); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", MetadataFile, err))
	}

	raw, err := os.ReadFile(filepath.Join(dataDir, MetricsFile))
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", MetricsFile, err))
	}
	schema, err := compileMetricsSchema()
	if err != nil {
		return append(errs, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", MetricsFile, err))
	}
	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			err = fmt.Errorf("%v", verr)
		}
		errs = append(errs, fmt.Errorf("%s: %w", MetricsFile, err))
	}
	return errs
}

func compileMetricsSchema() (*jsonschema.Schema, error) {
	content, err := assetsFS.ReadFile("metrics.schema.json")
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("decoding metrics schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(metricsSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("adding metrics schema: %w", err)
	}
	return c.Compile(metricsSchemaURL)
}

func loadJSON(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(v)
}
