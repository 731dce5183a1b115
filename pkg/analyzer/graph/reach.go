package graph

import "gonum.org/v1/gonum/mat"

// Closure is the transitive reachability relation of a graph.
type Closure struct {
	reach [][]bool
	// steps counts the multiply+OR rounds run.
	steps int
}

// Reachability computes the transitive closure of g by boolean matrix
// powers: with A the adjacency matrix (diagonal cleared), it OR-accumulates
// A, A^2, ..., A^n where each power is the previous one multiplied by A and
// reduced back to 0/1. All n-1 rounds run even once the relation stops
// growing.
func Reachability(g *Graph) *Closure {
	n := g.Len()
	c := &Closure{reach: make([][]bool, n)}
	for i := range c.reach {
		c.reach[i] = make([]bool, n)
	}
	if n == 0 {
		return c
	}

	adj := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := range g.adj[i] {
			adj.Set(i, j, 1)
		}
	}

	result := mat.DenseCopyOf(adj)
	current := mat.DenseCopyOf(adj)
	next := mat.NewDense(n, n, nil)
	for step := 2; step <= n; step++ {
		next.Mul(current, adj)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if next.At(i, j) != 0 {
					next.Set(i, j, 1)
					result.Set(i, j, 1)
				}
			}
		}
		current, next = next, current
		c.steps++
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c.reach[i][j] = i != j && result.At(i, j) != 0
		}
	}
	return c
}

// Count returns how many other nodes i reaches. A node never counts as
// reaching itself.
func (c *Closure) Count(i int) int {
	n := 0
	for _, ok := range c.reach[i] {
		if ok {
			n++
		}
	}
	return n
}

// Max returns the largest Count over all nodes, or 0 for an empty graph.
func (c *Closure) Max() int {
	best := 0
	for i := range c.reach {
		if n := c.Count(i); n > best {
			best = n
		}
	}
	return best
}

// Pairs returns the number of unordered pairs {i, j} with j reachable
// from i.
func (c *Closure) Pairs() int {
	n := 0
	for i := range c.reach {
		for j := i + 1; j < len(c.reach); j++ {
			if c.reach[i][j] {
				n++
			}
		}
	}
	return n
}
