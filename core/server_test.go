package core_test

import (
	"net"
	"testing"
	"time"

	"github.com/synnergy-chain/syncstore/core"
)

func startTestServer(t *testing.T) (*core.Client, string, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()

	stores := core.NewMemStores(nil)
	broker := core.NewWatchBroker(stores.Keys, stores.Tags)
	sync := core.NewSyncEngine(stores, broker, nil)
	merge := core.NewMergeEngine(stores, nil, nil)
	srv := core.NewServer(ln, stores, sync, merge, broker, nil, nil)

	go srv.Serve()

	c, err := core.Dial(addr)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	return c, addr, func() {
		c.Close()
		srv.Close()
	}
}

func TestClientValueAndKeyRoundTrip(t *testing.T) {
	c, _, cleanup := startTestServer(t)
	defer cleanup()

	k, err := c.ValueWrite(core.Value("hello"))
	if err != nil {
		t.Fatalf("ValueWrite: %v", err)
	}
	v, ok, err := c.ValueRead(k)
	if err != nil || !ok || string(v) != "hello" {
		t.Fatalf("ValueRead: v=%q ok=%v err=%v", v, ok, err)
	}

	if err := c.KeyAdd(k, nil); err != nil {
		t.Fatalf("KeyAdd: %v", err)
	}
	keys, err := c.KeyList()
	if err != nil || len(keys) != 1 || keys[0] != k {
		t.Fatalf("KeyList: %v, err=%v", keys, err)
	}
}

func TestClientTagRoundTrip(t *testing.T) {
	c, _, cleanup := startTestServer(t)
	defer cleanup()

	k, err := c.ValueWrite(core.Value("v"))
	if err != nil {
		t.Fatalf("ValueWrite: %v", err)
	}
	if err := c.KeyAdd(k, nil); err != nil {
		t.Fatalf("KeyAdd: %v", err)
	}
	if err := c.TagUpdate("main", []core.Key{k}); err != nil {
		t.Fatalf("TagUpdate: %v", err)
	}
	got, err := c.TagRead("main")
	if err != nil || len(got) != 1 || got[0] != k {
		t.Fatalf("TagRead: %v, err=%v", got, err)
	}
	tags, err := c.TagList()
	if err != nil || len(tags) != 1 || tags[0] != "main" {
		t.Fatalf("TagList: %v, err=%v", tags, err)
	}
}

func TestClientPushAndPullKeys(t *testing.T) {
	c, _, cleanup := startTestServer(t)
	defer cleanup()

	root, err := c.ValueWrite(core.Value("root"))
	if err != nil {
		t.Fatalf("ValueWrite: %v", err)
	}
	if err := c.PushKeys(core.Graph{Nodes: []core.Key{root}}, []core.TagBinding{{Tag: "main", Keys: []core.Key{root}}}); err != nil {
		t.Fatalf("PushKeys: %v", err)
	}

	tip, err := c.ValueWrite(core.Value("tip"))
	if err != nil {
		t.Fatalf("ValueWrite: %v", err)
	}
	g := core.Graph{Nodes: []core.Key{tip}, Edges: []core.Edge{{From: tip, To: root}}}
	if err := c.PushKeys(g, []core.TagBinding{{Tag: "main", Keys: []core.Key{tip}}}); err != nil {
		t.Fatalf("PushKeys: %v", err)
	}

	pulled, err := c.PullKeys([]core.Key{tip}, nil)
	if err != nil {
		t.Fatalf("PullKeys: %v", err)
	}
	if len(pulled.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(pulled.Nodes))
	}
}

func TestClientWatchReceivesPushedTag(t *testing.T) {
	c, addr, cleanup := startTestServer(t)
	defer cleanup()

	if err := c.TagUpdate("main", nil); err != nil {
		t.Fatalf("seed tag: %v", err)
	}

	events, cancel, err := core.Watch(addr, []core.Tag{"main"})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer cancel()

	k, err := c.ValueWrite(core.Value("v"))
	if err != nil {
		t.Fatalf("ValueWrite: %v", err)
	}
	if err := c.KeyAdd(k, nil); err != nil {
		t.Fatalf("KeyAdd: %v", err)
	}
	if err := c.TagUpdate("main", []core.Key{k}); err != nil {
		t.Fatalf("TagUpdate: %v", err)
	}

	select {
	case ev := <-events:
		if len(ev.Graph.Nodes) != 1 || ev.Graph.Nodes[0] != k {
			t.Fatalf("got nodes=%v", ev.Graph.Nodes)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch event")
	}
}
