package core

import (
	"errors"
	"testing"
	"time"
)

func TestPullKeysExcludesHaveClosure(t *testing.T) {
	stores := NewMemStores(nil)
	root, _ := stores.Values.Write(Value("root"))
	stores.Keys.Add(root, nil)
	mid, _ := stores.Values.Write(Value("mid"))
	stores.Keys.Add(mid, []Key{root})
	tip, _ := stores.Values.Write(Value("tip"))
	stores.Keys.Add(tip, []Key{mid})

	stores.Tags.Update("have", []Key{mid})

	e := NewSyncEngine(stores, nil, nil)
	g := e.PullKeys([]Key{tip}, []Tag{"have"})
	if len(g.Nodes) != 1 || g.Nodes[0] != tip {
		t.Fatalf("got %v, want [tip]", g.Nodes)
	}
}

func TestPushKeysRejectsDanglingAndAppliesValidGraph(t *testing.T) {
	stores := NewMemStores(nil)
	e := NewSyncEngine(stores, NewWatchBroker(stores.Keys, stores.Tags), nil)

	a, b := Key{1}, Key{2}
	bad := Graph{Nodes: []Key{a}, Edges: []Edge{{From: a, To: b}}}
	if err := e.PushKeys(bad, nil); !errors.Is(err, ErrDanglingReference) {
		t.Fatalf("got %v, want ErrDanglingReference", err)
	}

	good := Graph{Nodes: []Key{a, b}, Edges: []Edge{{From: a, To: b}}}
	if err := e.PushKeys(good, []TagBinding{{Tag: "main", Keys: []Key{a}}}); err != nil {
		t.Fatalf("PushKeys: %v", err)
	}
	if !stores.Keys.Has(a) || !stores.Keys.Has(b) {
		t.Fatalf("expected both nodes present")
	}
	if got := stores.Tags.Read("main"); len(got) != 1 || got[0] != a {
		t.Fatalf("got %v", got)
	}
}

func TestWatchReceivesIncrementalFrameOnPush(t *testing.T) {
	stores := NewMemStores(nil)
	broker := NewWatchBroker(stores.Keys, stores.Tags)
	e := NewSyncEngine(stores, broker, nil)

	events, cancel := e.Watch([]Tag{"main"})
	defer cancel()

	a := Key{1}
	if err := stores.Keys.Add(a, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := e.PushTags([]TagBinding{{Tag: "main", Keys: []Key{a}}}); err != nil {
		t.Fatalf("push tags: %v", err)
	}

	select {
	case ev := <-events:
		if len(ev.Changed) != 1 || ev.Changed[0] != "main" {
			t.Fatalf("got changed=%v", ev.Changed)
		}
		if len(ev.Graph.Nodes) != 1 || ev.Graph.Nodes[0] != a {
			t.Fatalf("got nodes=%v", ev.Graph.Nodes)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for watch event")
	}
}

func TestWatchBrokerEvictsSlowSubscriber(t *testing.T) {
	stores := NewMemStores(nil)
	broker := NewWatchBroker(stores.Keys, stores.Tags)

	events, _ := broker.Subscribe([]Tag{"main"})

	a := Key{1}
	stores.Keys.Add(a, nil)
	if err := stores.Tags.Update("main", []Key{a}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// Fill the subscriber's bounded queue past capacity without ever
	// draining it, forcing the broker to evict rather than block.
	for i := 0; i < 32; i++ {
		b := Key{byte(i + 2)}
		stores.Keys.Add(b, []Key{a})
		stores.Tags.Update("main", []Key{b})
		broker.Publish([]Tag{"main"})
	}

	select {
	case _, ok := <-events:
		if ok {
			// Still draining queued frames; keep reading until closed or
			// timeout proves eviction never happened.
			for ok {
				select {
				case _, ok = <-events:
				case <-time.After(time.Second):
					t.Fatal("subscriber channel never closed despite overflow")
				}
			}
		}
	case <-time.After(time.Second):
		t.Fatal("no event ever delivered")
	}
}
