package cohesion

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/panbanda/jcohesion/pkg/stats"
)

// MetricResult is one metric's result for one class.
type MetricResult struct {
	Metric string `json:"metric" yaml:"metric"`
	Result `yaml:",inline"`
}

// MarshalJSON keeps the metric name next to the embedded result, whose own
// MarshalJSON would otherwise replace the whole object.
func (r MetricResult) MarshalJSON() ([]byte, error) {
	var v *float64
	if r.Defined() {
		v = &r.Value
	}
	return json.Marshal(struct {
		Metric      string      `json:"metric"`
		Value       *float64    `json:"value"`
		Diagnostics Diagnostics `json:"diagnostics"`
	}{r.Metric, v, r.Diagnostics})
}

// UnmarshalJSON decodes what MarshalJSON writes.
func (r *MetricResult) UnmarshalJSON(data []byte) error {
	var named struct {
		Metric string `json:"metric"`
	}
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}
	r.Metric = named.Metric
	return r.Result.UnmarshalJSON(data)
}

// ClassMetrics holds every requested metric for a single class.
type ClassMetrics struct {
	Package    string         `json:"package" yaml:"package"`
	Class      string         `json:"class" yaml:"class"`
	Source     string         `json:"source,omitempty" yaml:"source,omitempty"`
	Methods    int            `json:"methods" yaml:"methods"`
	Attributes int            `json:"attributes" yaml:"attributes"`
	Metrics    []MetricResult `json:"metrics" yaml:"metrics"`
}

// QualifiedName returns the dotted class name.
func (c *ClassMetrics) QualifiedName() string {
	if c.Package == "" {
		return c.Class
	}
	return c.Package + "." + c.Class
}

// Value returns the named metric's value, or NaN if it was not computed.
func (c *ClassMetrics) Value(metric string) float64 {
	for _, m := range c.Metrics {
		if m.Metric == metric {
			return m.Value
		}
	}
	return math.NaN()
}

// MetricSummary aggregates one metric over all classes. Undefined values
// are counted but left out of the statistics.
type MetricSummary struct {
	Metric    string  `json:"metric" yaml:"metric"`
	Classes   int     `json:"classes" yaml:"classes"`
	Undefined int     `json:"undefined" yaml:"undefined"`
	Mean      float64 `json:"mean" yaml:"mean"`
	Sigma     float64 `json:"sigma" yaml:"sigma"`
	Min       float64 `json:"min" yaml:"min"`
	Max       float64 `json:"max" yaml:"max"`
	Median    float64 `json:"median" yaml:"median"`
	P90       float64 `json:"p90" yaml:"p90"`
}

// Summary provides aggregate metric statistics.
type Summary struct {
	TotalClasses  int             `json:"total_classes" yaml:"total_classes"`
	TotalPackages int             `json:"total_packages" yaml:"total_packages"`
	Metrics       []MetricSummary `json:"metrics" yaml:"metrics"`
}

// Metric returns the summary for the named metric.
func (s *Summary) Metric(name string) (MetricSummary, bool) {
	for _, m := range s.Metrics {
		if m.Metric == name {
			return m, true
		}
	}
	return MetricSummary{}, false
}

// Analysis is the full result of a cohesion run.
type Analysis struct {
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
	Metrics     []string       `json:"metrics" yaml:"metrics"`
	Options     Options        `json:"options" yaml:"options"`
	Classes     []ClassMetrics `json:"classes" yaml:"classes"`
	Summary     Summary        `json:"summary" yaml:"summary"`
}

// CalculateSummary computes per-metric mean and standard deviation, the
// {mean, sigma} pair downstream reports classify values against.
func (a *Analysis) CalculateSummary() {
	a.Summary = Summary{TotalClasses: len(a.Classes)}
	packages := make(map[string]bool)
	for _, c := range a.Classes {
		packages[c.Package] = true
	}
	a.Summary.TotalPackages = len(packages)

	for _, name := range a.Metrics {
		values := make([]float64, len(a.Classes))
		for i := range a.Classes {
			values[i] = a.Classes[i].Value(name)
		}
		d := stats.Describe(values)
		a.Summary.Metrics = append(a.Summary.Metrics, MetricSummary{
			Metric:    name,
			Classes:   len(a.Classes),
			Undefined: len(a.Classes) - d.N,
			Mean:      d.Mean,
			Sigma:     d.Sigma,
			Min:       d.Min,
			Max:       d.Max,
			Median:    d.Median,
			P90:       d.P90,
		})
	}
}

// SortBy orders classes by the named metric, highest first. Undefined
// values sort last; ties keep qualified-name order.
func (a *Analysis) SortBy(metric string) {
	sort.SliceStable(a.Classes, func(i, j int) bool {
		vi, vj := a.Classes[i].Value(metric), a.Classes[j].Value(metric)
		switch {
		case math.IsNaN(vi) && math.IsNaN(vj):
			return a.Classes[i].QualifiedName() < a.Classes[j].QualifiedName()
		case math.IsNaN(vi):
			return false
		case math.IsNaN(vj):
			return true
		case vi != vj:
			return vi > vj
		}
		return a.Classes[i].QualifiedName() < a.Classes[j].QualifiedName()
	})
}

// SortByName orders classes by qualified name.
func (a *Analysis) SortByName() {
	sort.SliceStable(a.Classes, func(i, j int) bool {
		return a.Classes[i].QualifiedName() < a.Classes[j].QualifiedName()
	})
}
