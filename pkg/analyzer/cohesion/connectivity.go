package cohesion

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/jcohesion/pkg/analyzer/graph"
	"github.com/panbanda/jcohesion/pkg/models"
)

func pairs(n int) int {
	return n * (n - 1) / 2
}

// OCC is the opportunity of cohesion: how much of the class the
// best-connected method can reach through shared variables. Each method's
// variables are first widened once with those of the methods it calls.
func OCC(c *models.ClassModel, opts Options) Result {
	v := newView(c, opts)
	m := len(v.methods)
	if m <= 1 {
		return Result{Value: 0, Diagnostics: diag(m, d("reachable", 0))}
	}

	vars := make([]*roaring.Bitmap, m)
	for i := range v.methods {
		vars[i] = v.uses[i].Clone()
		for _, callee := range v.callees[i] {
			vars[i].Or(v.uses[callee])
		}
	}
	g := graph.Build(len(v.methods), func(i, j int) bool {
		return vars[i].Intersects(vars[j])
	})
	best := graph.Reachability(g).Max()
	return Result{
		Value:       float64(best) / float64(m-1),
		Diagnostics: diag(m, d("reachable", best)),
	}
}

// CCM is the class connection metric nc/(nmp*ncc). nc counts the merges
// made while joining methods that share an attribute or call one another,
// and ncc counts the components of the call graph. Both graphs cover the
// concrete non-constructor methods; nmp is every qualifying method.
func CCM(c *models.ClassModel, opts Options) Result {
	v := newView(c, opts)
	m := len(v.methods)
	idx := v.subset(func(x *models.Method) bool { return !x.Ctor && !x.Abstract })
	if len(idx) < 2 {
		return Result{
			Value:       math.NaN(),
			Diagnostics: diag(m, d("nodes", len(idx)), d("nc", 0), d("ncc", len(idx))),
		}
	}

	linked := graph.Build(len(idx), restrict(v.FieldOrCallEdges(), idx))
	uf := graph.NewUnionFind(linked.Len())
	for i := 0; i < linked.Len(); i++ {
		for _, j := range linked.Neighbors(i) {
			if i < j {
				uf.Union(i, j)
			}
		}
	}
	nc := uf.Unions
	ncc := len(graph.Components(graph.Build(len(idx), restrict(v.CallEdges(), idx))))

	return Result{
		Value:       float64(nc) / float64(m*ncc),
		Diagnostics: diag(m, d("nodes", len(idx)), d("nc", nc), d("ncc", ncc)),
	}
}

// TCC is the tight class cohesion: the fraction of method pairs that
// share an attribute.
func TCC(c *models.ClassModel, opts Options) Result {
	v := newView(c, opts)
	m := len(v.methods)
	g := graph.Build(len(v.methods), v.SharedAttributeEdges())
	direct := g.EdgeCount()
	ds := diag(m, d("pairs", pairs(m)), d("direct", direct))
	if m < 2 {
		return Result{Value: math.NaN(), Diagnostics: ds}
	}
	return Result{Value: float64(direct) / float64(pairs(m)), Diagnostics: ds}
}

// LCC is the loose class cohesion: like TCC but pairs connected through a
// chain of shared attributes count too.
func LCC(c *models.ClassModel, opts Options) Result {
	v := newView(c, opts)
	m := len(v.methods)
	g := graph.Build(len(v.methods), v.SharedAttributeEdges())
	connected := graph.Reachability(g).Pairs()
	ds := diag(m, d("pairs", pairs(m)), d("direct", g.EdgeCount()), d("connected", connected))
	if m < 2 {
		return Result{Value: math.NaN(), Diagnostics: ds}
	}
	return Result{Value: float64(connected) / float64(pairs(m)), Diagnostics: ds}
}

// PCC is the path connectivity of the class: the largest number of other
// methods one method reaches through shared attributes, over |M| - 1.
func PCC(c *models.ClassModel, opts Options) Result {
	v := newView(c, opts)
	m := len(v.methods)
	best := graph.Reachability(graph.Build(len(v.methods), v.SharedAttributeEdges())).Max()
	ds := diag(m, d("reachable", best))
	if m < 2 {
		return Result{Value: math.NaN(), Diagnostics: ds}
	}
	return Result{Value: float64(best) / float64(m-1), Diagnostics: ds}
}

// SCOM is the sensitive class cohesion metric. Each pair of methods is
// weighted by how much of the smaller attribute set they share and by how
// much of the class's attributes they cover together.
func SCOM(c *models.ClassModel, opts Options) Result {
	v := newView(c, opts)
	m, a := len(v.methods), len(v.attrs)
	ds := diag(m, d("attributes", a), d("pairs", pairs(m)))
	if m < 2 || a == 0 {
		return Result{Value: math.NaN(), Diagnostics: ds}
	}

	var sum float64
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			small := min(v.uses[i].GetCardinality(), v.uses[j].GetCardinality())
			if small == 0 {
				continue
			}
			shared := v.uses[i].AndCardinality(v.uses[j])
			union := v.uses[i].OrCardinality(v.uses[j])
			sum += float64(shared) / float64(small) * float64(union) / float64(a)
		}
	}
	return Result{Value: sum / float64(pairs(m)), Diagnostics: ds}
}
