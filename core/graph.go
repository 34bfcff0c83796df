package core

// reachableFrom performs a breadth-first walk of the predecessor DAG
// starting at roots, stopping descent at any key whose entire ancestor set
// is already covered by stop. It returns the discovered nodes (excluding
// members of stop) in BFS discovery order, and every predecessor edge out of
// a discovered node (including edges into stop), also in discovery order.
//
// This is the traversal PullKeys uses to compute the reachability-closed
// subgraph requested by a client, and the watch broker uses to compute the
// subgraph newly reachable from a changed tag.
func reachableFrom(keys KeyStore, roots []Key, stop KeySet) (nodes []Key, edges []Edge) {
	visited := make(KeySet, len(roots))
	queue := make([]Key, 0, len(roots))

	for _, r := range roots {
		if !keys.Has(r) {
			continue // unknown roots are omitted per spec
		}
		if stop.Has(r) {
			continue
		}
		if !visited.Has(r) {
			visited[r] = struct{}{}
			queue = append(queue, r)
			nodes = append(nodes, r)
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, p := range keys.Pred(cur) {
			edges = append(edges, Edge{From: cur, To: p})
			if stop.Has(p) {
				continue
			}
			if !visited.Has(p) {
				visited[p] = struct{}{}
				queue = append(queue, p)
				nodes = append(nodes, p)
			}
		}
	}

	return nodes, edges
}

// ancestorClosure returns the set of all keys reachable from roots
// (inclusive), used to compute the "have" frontier's full covered set for
// PullKeys minimality (P7).
func ancestorClosure(keys KeyStore, roots []Key) KeySet {
	visited := make(KeySet, len(roots))
	queue := append([]Key(nil), roots...)
	for _, r := range roots {
		visited[r] = struct{}{}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range keys.Pred(cur) {
			if !visited.Has(p) {
				visited[p] = struct{}{}
				queue = append(queue, p)
			}
		}
	}
	return visited
}

// TopoSort orders g's nodes so that every node appears after all of its
// in-graph predecessors. It is the exported form of topoSort, for callers
// outside this package (e.g. a client mirroring a fetched graph locally)
// that need the same ordering PushKeys uses internally.
func TopoSort(g Graph) ([]Key, error) {
	return topoSort(g)
}

// topoSort orders g's nodes so that every node appears after all of its
// in-graph predecessors (edges whose To endpoint is also a node of g).
// PushKeys uses this to insert nodes predecessors-first. It returns an
// error if g's edges contain a cycle among its own nodes.
func topoSort(g Graph) ([]Key, error) {
	nodeSet := NewKeySet(g.Nodes...)
	preds := make(map[Key][]Key, len(g.Nodes))
	for _, n := range g.Nodes {
		preds[n] = nil
	}
	for _, e := range g.Edges {
		if !nodeSet.Has(e.From) || !nodeSet.Has(e.To) {
			continue
		}
		preds[e.From] = append(preds[e.From], e.To)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[Key]int, len(g.Nodes))
	order := make([]Key, 0, len(g.Nodes))

	var visit func(k Key) error
	visit = func(k Key) error {
		switch color[k] {
		case black:
			return nil
		case gray:
			return ErrCycleDetected
		}
		color[k] = gray
		for _, p := range preds[k] {
			if err := visit(p); err != nil {
				return err
			}
		}
		color[k] = black
		order = append(order, k)
		return nil
	}

	for _, n := range SortKeys(g.Nodes) {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return order, nil
}
