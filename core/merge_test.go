package core

import (
	"strings"
	"testing"
)

func TestMergeEngineLCA(t *testing.T) {
	stores := NewMemStores(nil)
	root, err := stores.Values.Write(Value("root"))
	if err != nil {
		t.Fatalf("write root: %v", err)
	}
	if err := stores.Keys.Add(root, nil); err != nil {
		t.Fatalf("add root: %v", err)
	}

	a, _ := stores.Values.Write(Value("a"))
	if err := stores.Keys.Add(a, []Key{root}); err != nil {
		t.Fatalf("add a: %v", err)
	}
	b, _ := stores.Values.Write(Value("b"))
	if err := stores.Keys.Add(b, []Key{root}); err != nil {
		t.Fatalf("add b: %v", err)
	}

	me := NewMergeEngine(stores, nil, nil)
	lca, ok := me.LCA(a, b)
	if !ok || lca != root {
		t.Fatalf("LCA(a,b) = %x, %v; want %x, true", lca, ok, root)
	}
}

func TestMergeEngineResolvesWithRegisteredResolver(t *testing.T) {
	stores := NewMemStores(nil)
	root, _ := stores.Values.Write(Value("0"))
	stores.Keys.Add(root, nil)
	a, _ := stores.Values.Write(Value("1"))
	stores.Keys.Add(a, []Key{root})
	b, _ := stores.Values.Write(Value("2"))
	stores.Keys.Add(b, []Key{root})

	me := NewMergeEngine(stores, nil, nil)
	me.Register("counter", func(old *Value, va, vb Value) (Value, error) {
		return Value(string(va) + "+" + string(vb)), nil
	})

	merged, err := me.Merge("counter", a, b)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	v, ok := stores.Values.Read(merged)
	if !ok || string(v) != "1+2" {
		t.Fatalf("got %q, ok=%v", v, ok)
	}
	preds := stores.Keys.Pred(merged)
	if len(preds) != 2 {
		t.Fatalf("expected 2 preds, got %v", preds)
	}
}

func TestMergeUnregisteredPathIsConflict(t *testing.T) {
	stores := NewMemStores(nil)
	a, _ := stores.Values.Write(Value("a"))
	stores.Keys.Add(a, nil)
	b, _ := stores.Values.Write(Value("b"))
	stores.Keys.Add(b, nil)

	me := NewMergeEngine(stores, nil, nil)
	_, err := me.Merge("nope", a, b)
	var conflict *Conflict
	if !asConflict(err, &conflict) {
		t.Fatalf("got %v, want *Conflict", err)
	}
}

func asConflict(err error, target **Conflict) bool {
	c, ok := err.(*Conflict)
	if ok {
		*target = c
	}
	return ok
}

// TestMergeLogsConcatenatesAndSortsDivergentEntries exercises the worked
// log-merge example: two branches each append one entry to a shared log;
// the merge must keep the shared prefix and append both new entries in
// timestamp order.
func TestMergeLogsConcatenatesAndSortsDivergentEntries(t *testing.T) {
	old := Value("100\tinit\n")
	a := Value("100\tinit\n300\tfrom-a\n")
	b := Value("100\tinit\n200\tfrom-b\n")

	merged, err := MergeLogs(&old, a, b)
	if err != nil {
		t.Fatalf("MergeLogs: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(merged), "\n"), "\n")
	want := []string{"100\tinit", "200\tfrom-b", "300\tfrom-a"}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: got %q want %q", i, lines[i], want[i])
		}
	}
}

func TestMergeLogsWithNoCommonAncestor(t *testing.T) {
	a := Value("100\tfrom-a\n")
	b := Value("200\tfrom-b\n")
	merged, err := MergeLogs(nil, a, b)
	if err != nil {
		t.Fatalf("MergeLogs: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(merged), "\n"), "\n")
	if len(lines) != 2 || lines[0] != "100\tfrom-a" || lines[1] != "200\tfrom-b" {
		t.Fatalf("got %v", lines)
	}
}
