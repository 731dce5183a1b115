// Package graph provides the per-class method graphs used by the cohesion
// metrics: an index-based undirected graph, connected components, union-find
// and boolean reachability.
package graph

import "sort"

// EdgePredicate reports whether nodes i and j are connected. It is called
// once per unordered pair with i < j.
type EdgePredicate func(i, j int) bool

// Graph is an undirected graph over an arena of nodes addressed by index.
// It is built for a single metric computation and then discarded.
type Graph struct {
	adj []map[int]struct{}
}

// New creates a graph with n nodes and no edges.
func New(n int) *Graph {
	g := &Graph{adj: make([]map[int]struct{}, n)}
	for i := range g.adj {
		g.adj[i] = make(map[int]struct{})
	}
	return g
}

// Build creates a graph with n nodes and connects every pair accepted by
// pred.
func Build(n int, pred EdgePredicate) *Graph {
	g := New(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if pred(i, j) {
				g.Connect(i, j)
			}
		}
	}
	return g
}

// Connect adds an undirected edge. Self loops are ignored.
func (g *Graph) Connect(i, j int) {
	if i == j {
		return
	}
	g.adj[i][j] = struct{}{}
	g.adj[j][i] = struct{}{}
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.adj)
}

// Neighbors returns the nodes adjacent to i in ascending order.
func (g *Graph) Neighbors(i int) []int {
	out := make([]int, 0, len(g.adj[i]))
	for j := range g.adj[i] {
		out = append(out, j)
	}
	sort.Ints(out)
	return out
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, a := range g.adj {
		n += len(a)
	}
	return n / 2
}
