package core

import "testing"

// chain builds a->b->c (a's predecessor is b, b's predecessor is c) in ks.
func chain(t *testing.T, ks *MemKeyStore, keys ...Key) {
	t.Helper()
	for i := len(keys) - 1; i >= 0; i-- {
		var preds []Key
		if i+1 < len(keys) {
			preds = []Key{keys[i+1]}
		}
		if err := ks.Add(keys[i], preds); err != nil {
			t.Fatalf("add %x: %v", keys[i], err)
		}
	}
}

func TestReachableFromStopsAtCoveredFrontier(t *testing.T) {
	ks := NewMemKeyStore()
	a, b, c := Key{1}, Key{2}, Key{3}
	chain(t, ks, a, b, c)

	nodes, _ := reachableFrom(ks, []Key{a}, NewKeySet(b))
	if len(nodes) != 1 || nodes[0] != a {
		t.Fatalf("got %v, want [a]", nodes)
	}

	nodes, edges := reachableFrom(ks, []Key{a}, nil)
	if len(nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(nodes))
	}
	if len(edges) != 2 {
		t.Fatalf("got %d edges, want 2", len(edges))
	}
}

func TestAncestorClosureIncludesRoots(t *testing.T) {
	ks := NewMemKeyStore()
	a, b, c := Key{1}, Key{2}, Key{3}
	chain(t, ks, a, b, c)

	closure := ancestorClosure(ks, []Key{a})
	for _, k := range []Key{a, b, c} {
		if !closure.Has(k) {
			t.Errorf("closure missing %x", k)
		}
	}
}

func TestTopoSortOrdersPredecessorsFirst(t *testing.T) {
	a, b, c := Key{1}, Key{2}, Key{3}
	g := Graph{
		Nodes: []Key{a, b, c},
		Edges: []Edge{{From: a, To: b}, {From: b, To: c}},
	}
	order, err := topoSort(g)
	if err != nil {
		t.Fatalf("topoSort: %v", err)
	}
	pos := make(map[Key]int, len(order))
	for i, k := range order {
		pos[k] = i
	}
	if pos[c] > pos[b] || pos[b] > pos[a] {
		t.Fatalf("order %v does not place predecessors before dependents", order)
	}
}

func TestTopoSortDetectsCycle(t *testing.T) {
	a, b := Key{1}, Key{2}
	g := Graph{
		Nodes: []Key{a, b},
		Edges: []Edge{{From: a, To: b}, {From: b, To: a}},
	}
	if _, err := topoSort(g); err != ErrCycleDetected {
		t.Fatalf("got %v, want ErrCycleDetected", err)
	}
}
