package graph

// Components partitions the graph into connected components. It repeatedly
// takes a node from the unvisited pool and flood-fills from it. Neither the
// order of components nor the order of nodes inside one is meaningful.
func Components(g *Graph) [][]int {
	n := g.Len()
	unvisited := make(map[int]struct{}, n)
	for i := 0; i < n; i++ {
		unvisited[i] = struct{}{}
	}

	var comps [][]int
	for start := 0; start < n; start++ {
		if _, ok := unvisited[start]; !ok {
			continue
		}
		delete(unvisited, start)
		comp := []int{start}
		queue := []int{start}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for u := range g.adj[v] {
				if _, ok := unvisited[u]; !ok {
					continue
				}
				delete(unvisited, u)
				comp = append(comp, u)
				queue = append(queue, u)
			}
		}
		comps = append(comps, comp)
	}
	return comps
}

// UnionFind is a disjoint-set forest with path compression and union by
// rank. Unions counts the merges that joined two distinct sets.
type UnionFind struct {
	parent []int
	rank   []int
	Unions int
}

// NewUnionFind creates n singleton sets.
func NewUnionFind(n int) *UnionFind {
	uf := &UnionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

// Find returns the representative of x's set.
func (uf *UnionFind) Find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets of a and b and reports whether they were distinct.
func (uf *UnionFind) Union(a, b int) bool {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return false
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
	uf.Unions++
	return true
}
