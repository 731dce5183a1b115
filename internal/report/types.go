package report

import "time"

// Metadata contains report generation metadata.
type Metadata struct {
	Repository       string    `json:"repository"`
	GeneratedAt      time.Time `json:"generated_at"`
	JcohesionVersion string    `json:"jcohesion_version"`
	Paths            []string  `json:"paths"`
	Revision         string    `json:"revision,omitempty"`
}

// Options mirrors the method filter recorded in metrics.json.
type Options struct {
	IncludeCtors          bool `json:"include_ctors"`
	IncludeStaticMethods  bool `json:"include_static_methods"`
	IncludePrivateMethods bool `json:"include_private_methods"`
}

// MetricCell is one metric value of one class. A nil value is undefined.
type MetricCell struct {
	Metric string   `json:"metric"`
	Value  *float64 `json:"value"`
	Band   string   `json:"band,omitempty"`
}

// ClassRow is one class of metrics.json.
type ClassRow struct {
	Class      string       `json:"class"`
	Source     string       `json:"source,omitempty"`
	Methods    int          `json:"methods"`
	Attributes int          `json:"attributes"`
	Metrics    []MetricCell `json:"metrics"`
}

// Package returns the package part of the qualified class name.
func (r ClassRow) Package() string {
	for i := len(r.Class) - 1; i >= 0; i-- {
		if r.Class[i] == '.' {
			return r.Class[:i]
		}
	}
	return ""
}

// SimpleName returns the class name without its package.
func (r ClassRow) SimpleName() string {
	if pkg := r.Package(); pkg != "" {
		return r.Class[len(pkg)+1:]
	}
	return r.Class
}

// SummaryRow aggregates one metric over all classes.
type SummaryRow struct {
	Metric    string   `json:"metric"`
	Classes   int      `json:"classes"`
	Undefined int      `json:"undefined"`
	Mean      *float64 `json:"mean"`
	Sigma     *float64 `json:"sigma"`
	Min       *float64 `json:"min"`
	Max       *float64 `json:"max"`
	Median    *float64 `json:"median"`
	P90       *float64 `json:"p90"`
}

// MetricsData represents the metrics.json structure.
type MetricsData struct {
	GeneratedAt   string       `json:"generated_at"`
	Options       Options      `json:"options"`
	TotalClasses  int          `json:"total_classes"`
	TotalPackages int          `json:"total_packages"`
	Classes       []ClassRow   `json:"classes"`
	Summary       []SummaryRow `json:"summary"`
}

// PackageGroup is the classes of one package, in metrics.json order.
type PackageGroup struct {
	Name    string
	Classes []ClassRow
}

// BandCount tallies how one metric's values fall against its reference
// distribution.
type BandCount struct {
	Metric string
	Below  int
	Within int
	Above  int
}

// Total returns the number of banded values.
func (b BandCount) Total() int {
	return b.Below + b.Within + b.Above
}
