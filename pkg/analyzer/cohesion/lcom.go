package cohesion

import (
	"math"

	"github.com/panbanda/jcohesion/pkg/analyzer/graph"
	"github.com/panbanda/jcohesion/pkg/models"
)

// LCOM is the Chidamber-Kemerer lack of cohesion: the number of method
// pairs with no attribute in common minus the number sharing one, floored
// at zero.
func LCOM(c *models.ClassModel, opts Options) Result {
	v := newView(c, opts)
	n := len(v.methods)
	if n < 2 {
		return Result{Value: 0, Diagnostics: diag(n, d("disjoint", 0), d("sharing", 0))}
	}
	var p, q int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if v.uses[i].Intersects(v.uses[j]) {
				q++
			} else {
				p++
			}
		}
	}
	return Result{
		Value:       float64(max(p-q, 0)),
		Diagnostics: diag(n, d("disjoint", p), d("sharing", q)),
	}
}

// attributeSum adds up, over every attribute, the number of qualifying
// methods that touch it.
func attributeSum(v *view) int {
	sum := 0
	for idx := range v.attrs {
		sum += v.touches(uint32(idx))
	}
	return sum
}

// LCOM2 is 1 - sum/(|A|*|M|) where sum counts method-attribute uses.
func LCOM2(c *models.ClassModel, opts Options) Result {
	v := newView(c, opts)
	m, a := len(v.methods), len(v.attrs)
	sum := attributeSum(v)
	ds := diag(m, d("attributes", a), d("sum", sum))
	if m == 0 || a == 0 {
		return Result{Value: 0, Diagnostics: ds}
	}
	return Result{
		Value:       1 - float64(sum)/float64(a*m),
		Diagnostics: ds,
	}
}

// LCOM3 is the Henderson-Sellers variant (|M| - sum/|A|)/(|M| - 1), where
// A holds only the attributes some qualifying method actually touches.
func LCOM3(c *models.ClassModel, opts Options) Result {
	v := newView(c, opts)
	m := len(v.methods)
	a := int(v.weak().GetCardinality())
	sum := attributeSum(v)
	ds := diag(m, d("attributes", a), d("sum", sum))
	if a == 0 || m <= 1 {
		return Result{Value: 0, Diagnostics: ds}
	}
	return Result{
		Value:       (float64(m) - float64(sum)/float64(a)) / float64(m-1),
		Diagnostics: ds,
	}
}

// LCOM4 counts the connected components of the graph linking methods that
// call each other.
func LCOM4(c *models.ClassModel, opts Options) Result {
	v := newView(c, opts)
	m := len(v.methods)
	if m == 0 {
		return Result{Value: 0, Diagnostics: diag(0, d("components", 0))}
	}
	comps := graph.Components(graph.Build(len(v.methods), v.CallEdges()))
	return Result{
		Value:       float64(len(comps)),
		Diagnostics: diag(m, d("components", len(comps))),
	}
}

// LCOM5 is (fieldsum - |M|*|F|) / (|F|*(1 - |M|)) over the declared
// fields F.
func LCOM5(c *models.ClassModel, opts Options) Result {
	v := newView(c, opts)
	m, f := len(v.methods), len(v.attrs)
	sum := attributeSum(v)
	ds := diag(m, d("attributes", f), d("fieldsum", sum))

	var value float64
	switch {
	case m == 1:
		if sum == 0 {
			value = 1
		}
	case f == 0:
		if m == 0 {
			value = 1
		} else {
			value = math.NaN()
		}
	case m == 0:
		value = 0
	default:
		value = float64(sum-m*f) / float64(f*(1-m))
	}
	return Result{Value: value, Diagnostics: ds}
}
