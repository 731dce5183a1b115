// Package cohesion computes class cohesion metrics over extracted class
// models: the LCOM family, the parameter-type metrics (CAMC, MMAC, NHD) and
// the connectivity metrics (OCC, CCM, TCC, LCC, PCC, SCOM).
package cohesion

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/jcohesion/pkg/analyzer"
	"github.com/panbanda/jcohesion/pkg/models"
)

// Ensure Analyzer implements analyzer.ClassAnalyzer.
var _ analyzer.ClassAnalyzer[*Analysis] = (*Analyzer)(nil)

// ResultCache stores encoded metric results between runs.
type ResultCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, data []byte) error
}

// Analyzer runs a set of metrics over a set of classes.
type Analyzer struct {
	opts       Options
	metrics    []string
	maxWorkers int
	cache      ResultCache
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithOptions replaces the whole method filter.
func WithOptions(opts Options) Option {
	return func(a *Analyzer) {
		a.opts = opts
	}
}

// WithMetrics selects the metrics to run, in output order. By default every
// registered metric runs.
func WithMetrics(names ...string) Option {
	return func(a *Analyzer) {
		a.metrics = make([]string, 0, len(names))
		for _, name := range names {
			a.metrics = append(a.metrics, strings.ToUpper(strings.TrimSpace(name)))
		}
	}
}

// WithMaxWorkers bounds the number of concurrent calculations
// (0 = 2x NumCPU).
func WithMaxWorkers(n int) Option {
	return func(a *Analyzer) {
		a.maxWorkers = n
	}
}

// WithCache reuses results for classes whose digest, metric and method
// filter were seen before. Classes without a digest are always computed.
func WithCache(c ResultCache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// New creates a new cohesion analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		opts:    DefaultOptions(),
		metrics: Names(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.maxWorkers <= 0 {
		a.maxWorkers = runtime.NumCPU() * 2
	}
	return a
}

// Options returns the method filter the analyzer applies.
func (a *Analyzer) Options() Options {
	return a.opts
}

// Metrics returns the metric names the analyzer runs.
func (a *Analyzer) Metrics() []string {
	return append([]string(nil), a.metrics...)
}

// Analyze runs every selected metric on every class. Each (class, metric)
// pair is an independent task; results land in their own slots so no
// locking is needed.
func (a *Analyzer) Analyze(ctx context.Context, classes []*models.ClassModel) (*Analysis, error) {
	calcs := make([]Calculator, len(a.metrics))
	for i, name := range a.metrics {
		calc, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		calcs[i] = calc
	}

	analysis := &Analysis{
		GeneratedAt: time.Now().UTC(),
		Metrics:     a.Metrics(),
		Options:     a.opts,
		Classes:     make([]ClassMetrics, len(classes)),
	}

	tracker := analyzer.TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(classes) * len(calcs))
	}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(a.maxWorkers)
	for ci, class := range classes {
		analysis.Classes[ci] = newClassMetrics(class, a.opts, len(calcs))
		for mi, calc := range calcs {
			p.Go(func(ctx context.Context) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				analysis.Classes[ci].Metrics[mi] = MetricResult{
					Metric: a.metrics[mi],
					Result: a.compute(class, a.metrics[mi], calc),
				}
				if tracker != nil {
					tracker.Tick(class.QualifiedName())
				}
				return nil
			})
		}
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("computing metrics: %w", err)
	}

	analysis.CalculateSummary()
	return analysis, nil
}

func (a *Analyzer) compute(c *models.ClassModel, metric string, calc Calculator) Result {
	if a.cache == nil || c.Digest == "" {
		return calc(c, a.opts)
	}
	key := CacheKey(c.Digest, metric, a.opts)
	if data, ok := a.cache.Get(key); ok {
		var cached Result
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached
		}
	}
	res := calc(c, a.opts)
	if data, err := json.Marshal(res); err == nil {
		_ = a.cache.Set(key, data)
	}
	return res
}

// CacheKey identifies one metric result for a class digest under a method
// filter.
func CacheKey(digest, metric string, opts Options) string {
	return fmt.Sprintf("%s:%s:ctors=%t:static=%t:private=%t",
		digest, metric, opts.IncludeCtors, opts.IncludeStaticMethods, opts.IncludePrivateMethods)
}

// Close releases resources held by the analyzer.
func (a *Analyzer) Close() {}

func newClassMetrics(c *models.ClassModel, opts Options, n int) ClassMetrics {
	methods := 0
	for i := range c.Methods {
		if opts.Qualifies(&c.Methods[i]) {
			methods++
		}
	}
	return ClassMetrics{
		Package:    c.Package,
		Class:      c.ID,
		Source:     c.Source,
		Methods:    methods,
		Attributes: len(c.Attributes),
		Metrics:    make([]MetricResult, n),
	}
}
