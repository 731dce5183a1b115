package cohesion

import (
	"math"

	"github.com/panbanda/jcohesion/pkg/models"
)

// The parameter-type metrics below read a method's distinct parameter
// types; return types do not count.

// typeCounts returns, for each parameter type in use, how many qualifying
// methods declare it, plus the per-method type sets.
func typeCounts(v *view) (map[string]int, []map[string]struct{}) {
	per, all := v.typeSets()
	counts := make(map[string]int, len(all))
	for t := range all {
		for _, set := range per {
			if _, ok := set[t]; ok {
				counts[t]++
			}
		}
	}
	return counts, per
}

// CAMC is the cohesion among methods of a class: the share of the
// method-by-type matrix that is filled.
func CAMC(c *models.ClassModel, opts Options) Result {
	v := newView(c, opts)
	m := len(v.methods)
	counts, per := typeCounts(v)
	sum := 0
	for _, set := range per {
		sum += len(set)
	}
	ds := diag(m, d("types", len(counts)), d("sum", sum))
	if m == 0 || len(counts) == 0 {
		return Result{Value: 1, Diagnostics: ds}
	}
	return Result{
		Value:       float64(sum) / float64(len(counts)*m),
		Diagnostics: ds,
	}
}

// MMAC is the method-method attribute cohesion over parameter types.
func MMAC(c *models.ClassModel, opts Options) Result {
	v := newView(c, opts)
	m := len(v.methods)
	counts, _ := typeCounts(v)
	sum := 0
	for _, k := range counts {
		sum += k * (k - 1)
	}
	ds := diag(m, d("types", len(counts)), d("sum", sum))

	switch {
	case m == 0:
		return Result{Value: 0, Diagnostics: ds}
	case m == 1:
		return Result{Value: 1, Diagnostics: ds}
	case len(counts) == 0:
		return Result{Value: 0, Diagnostics: ds}
	}
	return Result{
		Value:       float64(sum) / float64(len(counts)*m*(m-1)),
		Diagnostics: ds,
	}
}

// NHD is the normalized Hamming distance between the methods' parameter
// type vectors, reported as a similarity.
func NHD(c *models.ClassModel, opts Options) Result {
	v := newView(c, opts)
	m := len(v.methods)
	counts, _ := typeCounts(v)
	sum := 0
	for _, k := range counts {
		sum += k * (m - k)
	}
	ds := diag(m, d("types", len(counts)), d("sum", sum))
	if m <= 1 || len(counts) == 0 {
		return Result{Value: math.NaN(), Diagnostics: ds}
	}
	return Result{
		Value:       1 - 2*float64(sum)/float64(len(counts)*m*(m-1)),
		Diagnostics: ds,
	}
}
