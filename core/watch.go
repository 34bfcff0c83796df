package core

import "sync"

// WatchEvent is one frame of a watch stream: the subset of the watched tags
// that changed since the previous frame, together with the subgraph newly
// reachable since that frame.
type WatchEvent struct {
	Changed []Tag
	Graph   Graph
}

type watchSubscription struct {
	id       uint64
	tagSet   map[Tag]struct{}
	lastSeen map[Tag]KeySet // ancestor closure last announced for each watched tag
	ch       chan WatchEvent
	closed   bool
}

// WatchBroker fans out tag-change notifications to any number of watchers,
// each scoped to its own subset of tags. It implements the bounded-queue
// policy from the design notes by eviction: a slow subscriber's channel is
// never blocked on indefinitely — if it is full, the broker drops the
// subscriber and closes its channel, forcing the client to resubscribe.
type WatchBroker struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*watchSubscription
	keys   KeyStore
	tags   TagStore
}

// NewWatchBroker returns a broker that resolves newly-reachable subgraphs
// against the given stores.
func NewWatchBroker(keys KeyStore, tags TagStore) *WatchBroker {
	return &WatchBroker{subs: make(map[uint64]*watchSubscription), keys: keys, tags: tags}
}

// Subscribe registers a new watcher for the given tag set and returns the
// event channel plus a cancel function. The caller must call cancel to
// release server-side resources.
func (b *WatchBroker) Subscribe(tagList []Tag) (<-chan WatchEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &watchSubscription{
		id:       b.nextID,
		tagSet:   make(map[Tag]struct{}, len(tagList)),
		lastSeen: make(map[Tag]KeySet, len(tagList)),
		ch:       make(chan WatchEvent, 8),
	}
	b.nextID++
	for _, t := range tagList {
		sub.tagSet[t] = struct{}{}
		sub.lastSeen[t] = ancestorClosure(b.keys, b.tags.Read(t))
	}
	b.subs[sub.id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[sub.id]; ok && !s.closed {
			s.closed = true
			close(s.ch)
			delete(b.subs, sub.id)
		}
	}
	return sub.ch, cancel
}

// Publish notifies every subscriber watching any of changed. For each
// affected subscriber it computes the keys newly reachable since the last
// frame it was sent and emits one WatchEvent.
func (b *WatchBroker) Publish(changed []Tag) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if sub.closed {
			continue
		}
		var affected []Tag
		newNodes := make(KeySet)
		var newEdges []Edge
		for _, t := range changed {
			if _, ok := sub.tagSet[t]; !ok {
				continue
			}
			affected = append(affected, t)
			curKeys := b.tags.Read(t)
			prev := sub.lastSeen[t]
			if prev == nil {
				prev = make(KeySet)
			}
			nodes, edges := reachableFrom(b.keys, curKeys, prev)
			for _, n := range nodes {
				newNodes[n] = struct{}{}
			}
			newEdges = append(newEdges, edges...)
			sub.lastSeen[t] = ancestorClosure(b.keys, curKeys)
		}
		if len(affected) == 0 {
			continue
		}
		ev := WatchEvent{Changed: SortTags(affected), Graph: Graph{Nodes: newNodes.Slice(), Edges: newEdges}}
		select {
		case sub.ch <- ev:
		default:
			// Slow subscriber: evict it rather than blocking the
			// publisher, per the design notes' bounded-queue policy.
			sub.closed = true
			close(sub.ch)
			delete(b.subs, sub.id)
		}
	}
}
