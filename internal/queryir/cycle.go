package queryir

import (
	"slices"
)

// dependencyGraph maps a node to the nodes that depend on it, ignoring
// wrt edges.
type dependencyGraph map[NodeID][]NodeID

func (g *Graph) dependencyGraph() dependencyGraph {
	dg := make(dependencyGraph)
	for _, n := range g.Nodes() {
		dg[n.ID] = []NodeID{}
	}
	for _, e := range g.Edges() {
		if e.Kind.InDependencyGraph() {
			dg[e.From] = append(dg[e.From], e.To)
		}
	}
	return dg
}

// Cycles returns every cycle in the dependency graph as a closed path
// [a, b, ..., a]. An acyclic graph returns nil.
//
// Each strongly connected component with more than one member is reported
// once. Connect rejects self-loops so single-node components are never
// cycles.
func (g *Graph) Cycles() [][]NodeID {
	dg := g.dependencyGraph()
	var cycles [][]NodeID
	for _, scc := range tarjanSCC(dg) {
		if len(scc) > 1 {
			cycles = append(cycles, reconstructCyclePath(scc, dg))
		}
	}
	slices.SortFunc(cycles, func(a, b []NodeID) int { return int(a[0] - b[0]) })
	return cycles
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in ID order so results are deterministic.
func tarjanSCC(graph dependencyGraph) [][]NodeID {
	var (
		index   = 0
		stack   []NodeID
		indices = make(map[NodeID]int)
		lowlink = make(map[NodeID]int)
		onStack = make(map[NodeID]bool)
		sccs    [][]NodeID
	)

	var strongConnect func(NodeID)
	strongConnect = func(v NodeID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []NodeID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]NodeID, 0, len(graph))
	for id := range graph {
		nodes = append(nodes, id)
	}
	slices.Sort(nodes)
	for _, id := range nodes {
		if _, visited := indices[id]; !visited {
			strongConnect(id)
		}
	}
	return sccs
}

// reconstructCyclePath walks edges inside an SCC from its smallest member
// until it returns to the start.
func reconstructCyclePath(scc []NodeID, graph dependencyGraph) []NodeID {
	if len(scc) == 0 {
		return nil
	}
	member := make(map[NodeID]bool, len(scc))
	for _, id := range scc {
		member[id] = true
	}

	start := scc[0]
	current := start
	path := []NodeID{current}
	visited := make(map[NodeID]bool)
	for {
		visited[current] = true
		next := NoNode
		for _, w := range graph[current] {
			if member[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next == NoNode {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
