package core

import (
	"github.com/sirupsen/logrus"
)

// SyncEngine computes reachability-closed graph diffs and reconciles tag
// sets between a local store and a remote peer. It is the server-side
// implementation of the four sync request types plus watch; the client-side
// proxy lives in client.go.
type SyncEngine struct {
	stores *Stores
	broker *WatchBroker
	logger *logrus.Logger
}

// NewSyncEngine wires a sync engine around stores, publishing tag-change
// notifications through broker.
func NewSyncEngine(stores *Stores, broker *WatchBroker, logger *logrus.Logger) *SyncEngine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SyncEngine{stores: stores, broker: broker, logger: logger}
}

// PullKeys computes the subgraph reachable from roots but excluding
// everything reachable from the keys currently bound to any tag in have.
func (e *SyncEngine) PullKeys(roots []Key, have []Tag) Graph {
	stop := make(KeySet)
	for _, t := range have {
		for _, k := range e.stores.Tags.Read(t) {
			closure := ancestorClosure(e.stores.Keys, []Key{k})
			for m := range closure {
				stop[m] = struct{}{}
			}
		}
	}
	nodes, edges := reachableFrom(e.stores.Keys, roots, stop)
	e.logger.WithFields(logrus.Fields{"roots": len(roots), "have": len(have), "nodes": len(nodes)}).
		Debug("sync: pull_keys")
	return Graph{Nodes: nodes, Edges: edges}
}

// PullTags returns a snapshot of every tag currently defined.
func (e *SyncEngine) PullTags() []TagBinding {
	tags := e.stores.Tags.List()
	out := make([]TagBinding, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagBinding{Tag: t, Keys: e.stores.Tags.Read(t)})
	}
	return out
}

// PushKeys validates and applies a client-proposed graph plus tag updates,
// atomically: closure, acyclicity, and (via the key store) reuse of already
// known nodes. Nodes are inserted in topological order, predecessors first.
// Every tag update must reference a key of g or an already known key; this
// is checked before any node is inserted. Value availability is the
// caller's responsibility (see SPEC_FULL.md §9): PushKeys does not check
// that new nodes have values, and callers such as the CLI's push and merge
// commands write each new node's value with value-write before pushing.
func (e *SyncEngine) PushKeys(g Graph, tagUpdates []TagBinding) error {
	nodeSet := NewKeySet(g.Nodes...)
	for _, edge := range g.Edges {
		if !nodeSet.Has(edge.From) {
			return ErrDanglingReference
		}
		if !nodeSet.Has(edge.To) && !e.stores.Keys.Has(edge.To) {
			return ErrDanglingReference
		}
	}

	order, err := topoSort(g)
	if err != nil {
		return err
	}

	for _, b := range tagUpdates {
		for _, k := range b.Keys {
			if !nodeSet.Has(k) && !e.stores.Keys.Has(k) {
				return ErrDanglingReference
			}
		}
	}

	predsOf := make(map[Key][]Key, len(g.Nodes))
	for _, edge := range g.Edges {
		predsOf[edge.From] = append(predsOf[edge.From], edge.To)
	}

	// Closure and acyclicity were validated above, so every Add below is
	// expected to succeed; nothing short of a concurrent store mutation
	// outside this call could make it fail, and PushKeys does not attempt
	// to guard against that case.
	for _, k := range order {
		if e.stores.Keys.Has(k) {
			continue
		}
		if err := e.stores.Keys.Add(k, predsOf[k]); err != nil {
			return err
		}
	}

	if err := e.applyTagBindings(tagUpdates); err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{"nodes": len(g.Nodes), "tags": len(tagUpdates)}).
		Info("sync: push_keys applied")
	return nil
}

// PushTags bulk-applies tag bindings. Every binding's keys are checked
// before any tag is changed; the bindings are then applied one tag at a
// time, so the batch as a whole is not isolated from concurrent readers or
// writers of the tag store.
func (e *SyncEngine) PushTags(bindings []TagBinding) error {
	return e.applyTagBindings(bindings)
}

func (e *SyncEngine) applyTagBindings(bindings []TagBinding) error {
	for _, b := range bindings {
		for _, k := range b.Keys {
			if !e.stores.Keys.Has(k) {
				return ErrDanglingReference
			}
		}
	}
	changed := make([]Tag, 0, len(bindings))
	for _, b := range bindings {
		if err := e.stores.Tags.Update(b.Tag, b.Keys); err != nil {
			return err
		}
		changed = append(changed, b.Tag)
	}
	if e.broker != nil && len(changed) > 0 {
		e.broker.Publish(changed)
	}
	return nil
}

// Watch subscribes to changes on tags, returning an event channel and a
// cancel function. Closing the returned channel's consumer side by calling
// cancel releases the subscription.
func (e *SyncEngine) Watch(tags []Tag) (<-chan WatchEvent, func()) {
	return e.broker.Subscribe(tags)
}
