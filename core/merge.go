package core

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Resolver reconciles two values that diverged from a common ancestor old
// (nil if there is no common ancestor value, e.g. the path did not exist at
// the LCA). Resolvers are pure functions of (old, t1, t2) registered per
// path.
type Resolver func(old *Value, a, b Value) (Value, error)

// MergeEngine computes lowest common ancestors over a KeyStore's
// predecessor DAG and applies a per-path Resolver to reconcile two
// divergent branches into a new commit key.
type MergeEngine struct {
	stores  *Stores
	metrics *Metrics

	mu        sync.RWMutex
	resolvers map[string]Resolver
	logger    *logrus.Logger
}

// NewMergeEngine returns a merge engine with no resolvers registered.
// metrics may be nil.
func NewMergeEngine(stores *Stores, metrics *Metrics, logger *logrus.Logger) *MergeEngine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MergeEngine{stores: stores, metrics: metrics, resolvers: make(map[string]Resolver), logger: logger}
}

// Register installs resolver for path. A later call with the same path
// replaces the previous resolver.
func (m *MergeEngine) Register(path string, resolver Resolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[path] = resolver
}

func (m *MergeEngine) resolverFor(path string) (Resolver, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resolvers[path]
	return r, ok
}

// LCA returns a lowest common ancestor of a and b in the predecessor DAG: a
// common ancestor from which no other common ancestor descends. If there are
// several, LCA deterministically picks the one nearest to a and b by BFS
// distance, then the least under Key's total order. ok is false if a and b
// share no common ancestor.
func (m *MergeEngine) LCA(a, b Key) (lca Key, ok bool) {
	depthA := bfsDepths(m.stores.Keys, a)
	depthB := bfsDepths(m.stores.Keys, b)

	// Every proper ancestor of a common ancestor is itself common but not lowest.
	covered := make(KeySet)
	for k := range depthA {
		if _, inB := depthB[k]; inB {
			for p := range ancestorClosure(m.stores.Keys, m.stores.Keys.Pred(k)) {
				covered[p] = struct{}{}
			}
		}
	}

	var best Key
	bestDepth := -1
	found := false
	for k, da := range depthA {
		db, inB := depthB[k]
		if !inB || covered.Has(k) {
			continue
		}
		depth := da
		if db < da {
			depth = db
		}
		if !found || depth < bestDepth || (depth == bestDepth && k.Less(best)) {
			best, bestDepth, found = k, depth, true
		}
	}
	return best, found
}

// bfsDepths returns every ancestor of root (root included, at depth 0),
// mapped to its BFS distance from root.
func bfsDepths(keys KeyStore, root Key) map[Key]int {
	depth := map[Key]int{root: 0}
	queue := []Key{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range keys.Pred(cur) {
			if _, seen := depth[p]; !seen {
				depth[p] = depth[cur] + 1
				queue = append(queue, p)
			}
		}
	}
	return depth
}

// Merge performs a three-way merge of a and b under path, writing the
// resolved value as a new content-addressed key with preds = {a, b} and
// returning that key. On resolver failure it returns a *Conflict,
// satisfying errors.Is(err, ErrConflict).
func (m *MergeEngine) Merge(path string, a, b Key) (Key, error) {
	resolver, ok := m.resolverFor(path)
	if !ok {
		m.metrics.IncMergeConflict()
		return Key{}, &Conflict{Path: path, Reason: "no resolver registered"}
	}

	var old *Value
	if lca, ok := m.LCA(a, b); ok {
		if v, present := m.stores.Values.Read(lca); present {
			old = &v
		}
	}

	va, ok := m.stores.Values.Read(a)
	if !ok {
		return Key{}, ErrDanglingReference
	}
	vb, ok := m.stores.Values.Read(b)
	if !ok {
		return Key{}, ErrDanglingReference
	}

	merged, err := resolver(old, va, vb)
	if err != nil {
		m.metrics.IncMergeConflict()
		return Key{}, &Conflict{Path: path, Reason: err.Error()}
	}

	k, err := m.stores.Values.Write(merged)
	if err != nil {
		return Key{}, err
	}
	if err := m.stores.Keys.Add(k, []Key{a, b}); err != nil {
		return Key{}, err
	}

	m.logger.WithFields(logrus.Fields{"path": path, "a": a.String()[:8], "b": b.String()[:8]}).
		Info("merge: resolved")
	return k, nil
}

// MergeExn behaves like Merge but panics on Conflict, for callers that
// treat conflicts as programmer error rather than a recoverable outcome.
func (m *MergeEngine) MergeExn(path string, a, b Key) Key {
	k, err := m.Merge(path, a, b)
	if err != nil {
		panic(err)
	}
	return k
}
