package graph

// TraversalResult contains an account and its distance from the source
type TraversalResult struct {
	AccountID string
	Distance  int
	Path      []string // Path from source to this account
}

// BFS performs breadth-first search from a source account following edge direction
func BFS(g Graph, sourceID string, maxHops int) []*TraversalResult {
	if !g.HasNode(sourceID) {
		return nil
	}

	visited := map[string]bool{sourceID: true}
	queue := []TraversalResult{{
		AccountID: sourceID,
		Distance:  0,
		Path:      []string{sourceID},
	}}

	var results []*TraversalResult
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		results = append(results, &current)

		// Stop if we've reached max hops
		if current.Distance >= maxHops {
			continue
		}

		for _, targetID := range g.Successors(current.AccountID) {
			if visited[targetID] {
				continue
			}
			visited[targetID] = true

			newPath := make([]string, len(current.Path), len(current.Path)+1)
			copy(newPath, current.Path)
			newPath = append(newPath, targetID)

			queue = append(queue, TraversalResult{
				AccountID: targetID,
				Distance:  current.Distance + 1,
				Path:      newPath,
			})
		}
	}

	return results
}

// Neighborhood returns the subgraph induced by all accounts reachable from the
// seeds within maxHops. Seeds that are no nodes of g are ignored.
func Neighborhood(g Graph, seeds []string, maxHops int) *Directed {
	reached := map[string]bool{}
	for _, seed := range seeds {
		for _, result := range BFS(g, seed, maxHops) {
			reached[result.AccountID] = true
		}
	}

	sub := NewDirected("neighborhood")
	for id := range reached {
		sub.AddNode(id)
	}
	for edge := range g.Edges() {
		if reached[edge.Source] && reached[edge.Target] {
			sub.AddEdge(edge.Source, edge.Target)
		}
	}

	return sub
}
