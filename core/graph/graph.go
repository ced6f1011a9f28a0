package graph

import (
	"iter"
	"sort"

	"github.com/siherrmann/diffuser/model"
)

// Graph is a read-only directed graph over account ids
type Graph interface {
	Nodes() []string
	HasNode(accountID string) bool
	Edges() iter.Seq[model.Edge]
	Successors(accountID string) []string
}

// Directed is an in-memory directed graph. Nodes and edges are returned in
// ascending id order. It is not safe for concurrent writes.
type Directed struct {
	name       string
	successors map[string]model.StringSet
}

// NewDirected creates an empty graph
func NewDirected(name string) *Directed {
	return &Directed{
		name:       name,
		successors: map[string]model.StringSet{},
	}
}

// Name returns the name of the graph
func (g *Directed) Name() string {
	return g.name
}

// AddNode adds an account without edges
func (g *Directed) AddNode(accountID string) {
	if _, ok := g.successors[accountID]; !ok {
		g.successors[accountID] = model.StringSet{}
	}
}

// AddEdge adds the edge and both of its nodes. Repeated edges are stored once.
func (g *Directed) AddEdge(source, target string) {
	g.AddNode(source)
	g.AddNode(target)
	g.successors[source].Add(target)
}

// HasNode implements Graph
func (g *Directed) HasNode(accountID string) bool {
	_, ok := g.successors[accountID]
	return ok
}

// Has reports whether the account is a node
func (g *Directed) Has(accountID string) bool {
	return g.HasNode(accountID)
}

// Nodes implements Graph
func (g *Directed) Nodes() []string {
	nodes := make([]string, 0, len(g.successors))
	for id := range g.successors {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	return nodes
}

// Successors implements Graph
func (g *Directed) Successors(accountID string) []string {
	successors, ok := g.successors[accountID]
	if !ok {
		return []string{}
	}
	return successors.Sorted()
}

// Edges implements Graph
func (g *Directed) Edges() iter.Seq[model.Edge] {
	return func(yield func(model.Edge) bool) {
		for _, source := range g.Nodes() {
			for _, target := range g.Successors(source) {
				if !yield(model.Edge{Source: source, Target: target}) {
					return
				}
			}
		}
	}
}

// NodeCount returns the number of nodes
func (g *Directed) NodeCount() int {
	return len(g.successors)
}

// EdgeCount returns the number of edges
func (g *Directed) EdgeCount() int {
	n := 0
	for _, successors := range g.successors {
		n += len(successors)
	}
	return n
}
