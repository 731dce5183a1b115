package output

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/panbanda/jcohesion/pkg/analyzer/cohesion"
	"github.com/panbanda/jcohesion/pkg/config"
)

// Band places a value against a metric's reference distribution.
type Band string

const (
	BandNone   Band = ""
	BandBelow  Band = "below"
	BandWithin Band = "within"
	BandAbove  Band = "above"
)

// Classify bands v against mean +/- sigma. NaN has no band.
func Classify(v float64, t config.Threshold) Band {
	switch {
	case math.IsNaN(v):
		return BandNone
	case v < t.Mean-t.Sigma:
		return BandBelow
	case v > t.Mean+t.Sigma:
		return BandAbove
	default:
		return BandWithin
	}
}

// FormatValue prints a metric value with four decimals, or NaN.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// ThresholdFunc looks up the reference distribution of a metric.
type ThresholdFunc func(metric string) (config.Threshold, bool)

// MetricsView renders a cohesion analysis: one row per class and a
// per-metric summary.
type MetricsView struct {
	Analysis   *cohesion.Analysis
	Thresholds ThresholdFunc
	Top        int // 0 = every class
}

// NewMetricsView creates a view over an analysis. thresholds may be nil.
func NewMetricsView(a *cohesion.Analysis, thresholds ThresholdFunc, top int) *MetricsView {
	return &MetricsView{Analysis: a, Thresholds: thresholds, Top: top}
}

func (v *MetricsView) classes() []cohesion.ClassMetrics {
	cls := v.Analysis.Classes
	if v.Top > 0 && v.Top < len(cls) {
		cls = cls[:v.Top]
	}
	return cls
}

func (v *MetricsView) band(metric string, value float64) Band {
	if v.Thresholds == nil {
		return BandNone
	}
	t, ok := v.Thresholds(metric)
	if !ok {
		return BandNone
	}
	return Classify(value, t)
}

func (v *MetricsView) report(colored bool) *Report {
	headers := append([]string{"Class", "Methods", "Attributes"}, v.Analysis.Metrics...)
	var rows [][]string
	for _, c := range v.classes() {
		row := []string{c.QualifiedName(), strconv.Itoa(c.Methods), strconv.Itoa(c.Attributes)}
		for _, name := range v.Analysis.Metrics {
			value := c.Value(name)
			cell := FormatValue(value)
			if colored {
				cell = BandColor(v.band(name, value), cell)
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}

	var summary [][]string
	for _, m := range v.Analysis.Summary.Metrics {
		summary = append(summary, []string{
			m.Metric,
			strconv.Itoa(m.Classes),
			strconv.Itoa(m.Undefined),
			FormatValue(m.Mean),
			FormatValue(m.Sigma),
			FormatValue(m.Min),
			FormatValue(m.Max),
			FormatValue(m.Median),
			FormatValue(m.P90),
		})
	}

	footer := []string{fmt.Sprintf("%d classes", v.Analysis.Summary.TotalClasses),
		fmt.Sprintf("%d packages", v.Analysis.Summary.TotalPackages)}
	for len(footer) < len(headers) {
		footer = append(footer, "")
	}

	return &Report{
		Title: "Cohesion Metrics",
		Sections: []Renderable{
			NewTable("Classes", headers, rows, footer, nil),
			NewTable("Summary", []string{"Metric", "Classes", "NaN", "Mean", "Sigma", "Min", "Max", "Median", "P90"}, summary, nil, nil),
		},
	}
}

// RenderText writes aligned tables. With color on, values outside one
// sigma of a configured threshold are highlighted.
func (v *MetricsView) RenderText(w io.Writer, colored bool) error {
	return v.report(colored).RenderText(w, colored)
}

// RenderMarkdown writes the same tables as markdown.
func (v *MetricsView) RenderMarkdown(w io.Writer) error {
	return v.report(false).RenderMarkdown(w)
}

type diagnosticData struct {
	Name  string  `json:"name" yaml:"name" toon:"name"`
	Value float64 `json:"value" yaml:"value" toon:"value"`
}

type metricData struct {
	Metric      string           `json:"metric" yaml:"metric" toon:"metric"`
	Value       *float64         `json:"value" yaml:"value" toon:"value"`
	Band        string           `json:"band,omitempty" yaml:"band,omitempty" toon:"band,omitempty"`
	Diagnostics []diagnosticData `json:"diagnostics" yaml:"diagnostics" toon:"diagnostics"`
}

type classData struct {
	Class      string       `json:"class" yaml:"class" toon:"class"`
	Source     string       `json:"source,omitempty" yaml:"source,omitempty" toon:"source,omitempty"`
	Methods    int          `json:"methods" yaml:"methods" toon:"methods"`
	Attributes int          `json:"attributes" yaml:"attributes" toon:"attributes"`
	Metrics    []metricData `json:"metrics" yaml:"metrics" toon:"metrics"`
}

type summaryData struct {
	Metric    string   `json:"metric" yaml:"metric" toon:"metric"`
	Classes   int      `json:"classes" yaml:"classes" toon:"classes"`
	Undefined int      `json:"undefined" yaml:"undefined" toon:"undefined"`
	Mean      *float64 `json:"mean" yaml:"mean" toon:"mean"`
	Sigma     *float64 `json:"sigma" yaml:"sigma" toon:"sigma"`
	Min       *float64 `json:"min" yaml:"min" toon:"min"`
	Max       *float64 `json:"max" yaml:"max" toon:"max"`
	Median    *float64 `json:"median" yaml:"median" toon:"median"`
	P90       *float64 `json:"p90" yaml:"p90" toon:"p90"`
}

type optionsData struct {
	IncludeCtors          bool `json:"include_ctors" yaml:"include_ctors" toon:"include_ctors"`
	IncludeStaticMethods  bool `json:"include_static_methods" yaml:"include_static_methods" toon:"include_static_methods"`
	IncludePrivateMethods bool `json:"include_private_methods" yaml:"include_private_methods" toon:"include_private_methods"`
}

type metricsData struct {
	GeneratedAt   string        `json:"generated_at" yaml:"generated_at" toon:"generated_at"`
	Options       optionsData   `json:"options" yaml:"options" toon:"options"`
	TotalClasses  int           `json:"total_classes" yaml:"total_classes" toon:"total_classes"`
	TotalPackages int           `json:"total_packages" yaml:"total_packages" toon:"total_packages"`
	Classes       []classData   `json:"classes" yaml:"classes" toon:"classes"`
	Summary       []summaryData `json:"summary" yaml:"summary" toon:"summary"`
}

// number maps NaN to nil so every structured format can carry it.
func number(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// RenderData returns a NaN-free document for the structured formats.
func (v *MetricsView) RenderData() any {
	a := v.Analysis
	data := metricsData{
		GeneratedAt: a.GeneratedAt.Format(time.RFC3339),
		Options: optionsData{
			IncludeCtors:          a.Options.IncludeCtors,
			IncludeStaticMethods:  a.Options.IncludeStaticMethods,
			IncludePrivateMethods: a.Options.IncludePrivateMethods,
		},
		TotalClasses:  a.Summary.TotalClasses,
		TotalPackages: a.Summary.TotalPackages,
		Classes:       []classData{},
		Summary:       []summaryData{},
	}
	for _, c := range v.classes() {
		cd := classData{
			Class:      c.QualifiedName(),
			Source:     c.Source,
			Methods:    c.Methods,
			Attributes: c.Attributes,
			Metrics:    make([]metricData, 0, len(c.Metrics)),
		}
		for _, m := range c.Metrics {
			md := metricData{
				Metric:      m.Metric,
				Value:       number(m.Value),
				Band:        string(v.band(m.Metric, m.Value)),
				Diagnostics: make([]diagnosticData, 0, len(m.Diagnostics)),
			}
			for _, dg := range m.Diagnostics {
				md.Diagnostics = append(md.Diagnostics, diagnosticData{Name: dg.Name, Value: dg.Value})
			}
			cd.Metrics = append(cd.Metrics, md)
		}
		data.Classes = append(data.Classes, cd)
	}
	for _, s := range a.Summary.Metrics {
		sd := summaryData{Metric: s.Metric, Classes: s.Classes, Undefined: s.Undefined}
		sd.Mean, sd.Sigma = number(s.Mean), number(s.Sigma)
		sd.Min, sd.Max = number(s.Min), number(s.Max)
		sd.Median, sd.P90 = number(s.Median), number(s.P90)
		data.Summary = append(data.Summary, sd)
	}
	return data
}
