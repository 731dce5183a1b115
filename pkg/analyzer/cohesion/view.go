package cohesion

import (
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/jcohesion/pkg/analyzer/graph"
	"github.com/panbanda/jcohesion/pkg/models"
)

// Options controls which methods of a class take part in a metric.
type Options struct {
	IncludeCtors          bool `json:"include_ctors" yaml:"include_ctors"`
	IncludeStaticMethods  bool `json:"include_static_methods" yaml:"include_static_methods"`
	IncludePrivateMethods bool `json:"include_private_methods" yaml:"include_private_methods"`
}

// DefaultOptions excludes constructors and static methods and keeps
// private ones.
func DefaultOptions() Options {
	return Options{IncludePrivateMethods: true}
}

// Qualifies reports whether m survives the method filter.
func (o Options) Qualifies(m *models.Method) bool {
	if m.Ctor && !o.IncludeCtors {
		return false
	}
	if m.Static && !o.IncludeStaticMethods {
		return false
	}
	if m.Private() && !o.IncludePrivateMethods {
		return false
	}
	return true
}

// view is the per-computation index of a class: qualifying methods, the
// attributes they can touch and the calls between them. It is built fresh
// for every metric and never shared.
type view struct {
	class   *models.ClassModel
	methods []*models.Method

	// attrs are the declared attribute names, minus compiler-generated
	// ones containing '$'.
	attrs     []string
	attrIndex map[string]uint32

	// uses[i] holds the attribute indexes touched by methods[i].
	uses []*roaring.Bitmap

	// callees[i] lists the qualifying methods that methods[i] invokes.
	callees [][]int
}

func newView(c *models.ClassModel, opts Options) *view {
	v := &view{
		class:     c,
		attrIndex: make(map[string]uint32),
	}
	for i := range c.Attributes {
		name := c.Attributes[i].Name
		if strings.Contains(name, "$") {
			continue
		}
		if _, dup := v.attrIndex[name]; dup {
			continue
		}
		v.attrIndex[name] = uint32(len(v.attrs))
		v.attrs = append(v.attrs, name)
	}
	for i := range c.Methods {
		m := &c.Methods[i]
		if opts.Qualifies(m) {
			v.methods = append(v.methods, m)
		}
	}

	v.uses = make([]*roaring.Bitmap, len(v.methods))
	for i, m := range v.methods {
		v.uses[i] = v.touched(m)
	}

	v.callees = make([][]int, len(v.methods))
	for i, m := range v.methods {
		for _, op := range m.Ops {
			if op.Kind != models.OpCall {
				continue
			}
			if j := v.resolve(op); j >= 0 && j != i {
				v.callees[i] = appendUnique(v.callees[i], j)
			}
		}
	}
	return v
}

func (v *view) touched(m *models.Method) *roaring.Bitmap {
	bm := roaring.New()
	for _, op := range m.Ops {
		if !op.Kind.IsFieldAccess() {
			continue
		}
		name := op.Target
		if op.Kind.IsStatic() {
			own, ok := v.class.OwnsStatic(op.Target)
			if !ok {
				continue
			}
			name = own
		}
		if idx, ok := v.attrIndex[name]; ok {
			bm.Add(idx)
		}
	}
	return bm
}

// resolve finds the qualifying method a call lands on, matching the class,
// the method name and the exact parameter types. It returns -1 for calls
// that leave the class or hit a filtered method.
func (v *view) resolve(op models.Operation) int {
	name, ok := v.class.OwnsCall(op.Target)
	if !ok {
		return -1
	}
	for j, m := range v.methods {
		if m.Name == name && sameTypes(m.Args, op.Args) {
			return j
		}
	}
	return -1
}

func sameTypes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func appendUnique(xs []int, x int) []int {
	for _, y := range xs {
		if y == x {
			return xs
		}
	}
	return append(xs, x)
}

// calls reports whether methods[i] invokes methods[j].
func (v *view) calls(i, j int) bool {
	for _, k := range v.callees[i] {
		if k == j {
			return true
		}
	}
	return false
}

// weak returns the attributes referenced by at least one qualifying method.
func (v *view) weak() *roaring.Bitmap {
	return roaring.FastOr(v.uses...)
}

// touches counts the qualifying methods using attribute idx.
func (v *view) touches(idx uint32) int {
	n := 0
	for _, bm := range v.uses {
		if bm.Contains(idx) {
			n++
		}
	}
	return n
}

// CallEdges connects two methods when either invokes the other.
func (v *view) CallEdges() graph.EdgePredicate {
	return func(i, j int) bool {
		return v.calls(i, j) || v.calls(j, i)
	}
}

// SharedAttributeEdges connects two methods that touch a common attribute.
func (v *view) SharedAttributeEdges() graph.EdgePredicate {
	return func(i, j int) bool {
		return v.uses[i].Intersects(v.uses[j])
	}
}

// FieldOrCallEdges is the union of SharedAttributeEdges and CallEdges.
func (v *view) FieldOrCallEdges() graph.EdgePredicate {
	shared, call := v.SharedAttributeEdges(), v.CallEdges()
	return func(i, j int) bool {
		return shared(i, j) || call(i, j)
	}
}

// subset returns the indexes of qualifying methods that also satisfy keep.
func (v *view) subset(keep func(*models.Method) bool) []int {
	var out []int
	for i, m := range v.methods {
		if keep(m) {
			out = append(out, i)
		}
	}
	return out
}

// restrict adapts a predicate over v's indexes to a predicate over the
// positions of idx.
func restrict(pred graph.EdgePredicate, idx []int) graph.EdgePredicate {
	return func(i, j int) bool {
		return pred(idx[i], idx[j])
	}
}

// typeSets returns, per qualifying method, the set of distinct parameter
// types, and the union across all methods.
func (v *view) typeSets() ([]map[string]struct{}, map[string]struct{}) {
	per := make([]map[string]struct{}, len(v.methods))
	all := make(map[string]struct{})
	for i, m := range v.methods {
		per[i] = make(map[string]struct{}, len(m.Args))
		for _, t := range m.Args {
			per[i][t] = struct{}{}
			all[t] = struct{}{}
		}
	}
	return per, all
}
