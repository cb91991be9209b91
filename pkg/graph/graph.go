package graph

// FeatureDim is the width of every node feature vector. The three scalars
// are normalized influence score, normalized tag count and a has-organization
// flag, in that order.
const FeatureDim = 3

// Edge is one directed edge of the relationship graph: a source node index,
// a target node index and a positive weight. Edges come from two independent
// sources (interaction counts and tag overlap) and are concatenated, not
// deduplicated, so the same node pair may appear more than once.
type Edge struct {
	Src    int
	Dst    int
	Weight float64
}

// Graph is the in-memory relationship graph of one workspace at one point
// in time: a node feature matrix, a directed edge list and bijective
// mappings between external contact ids and dense node indices.
//
// After Symmetrize has run, every edge appears in both directions with equal
// weight, so the graph is effectively undirected.
type Graph struct {
	Features  [][]float64
	Edges     []Edge
	IDToIndex map[string]int
	IndexToID []string
}

// NumNodes returns the number of nodes in the graph.
func (g *Graph) NumNodes() int {
	return len(g.Features)
}

// NumEdges returns the number of directed edges in the graph.
func (g *Graph) NumEdges() int {
	return len(g.Edges)
}

// IsDegenerate reports whether this is the placeholder graph produced for a
// workspace without contacts.
func (g *Graph) IsDegenerate() bool {
	return len(g.IndexToID) == 0
}

// Symmetrize appends the reverse of every edge with the same weight. It must
// be called exactly once, after all edge sources have been concatenated.
func (g *Graph) Symmetrize() {
	if len(g.Edges) == 0 {
		return
	}
	reversed := make([]Edge, len(g.Edges))
	for i, e := range g.Edges {
		reversed[i] = Edge{Src: e.Dst, Dst: e.Src, Weight: e.Weight}
	}
	g.Edges = append(g.Edges, reversed...)
}

// newDegenerateGraph returns a single-node, zero-edge graph used when a
// workspace has no contacts. Downstream code never has to special-case an
// empty node set.
func newDegenerateGraph() *Graph {
	return &Graph{
		Features:  [][]float64{make([]float64, FeatureDim)},
		Edges:     []Edge{},
		IDToIndex: map[string]int{},
		IndexToID: []string{},
	}
}
