package core

// DB is a convenience handle over a local Stores/SyncEngine/MergeEngine
// triple, scoped to one default branch tag. It is the embedded, in-process
// counterpart to Client: callers that run in the same process as the store
// (e.g. the CLI, or tests) use DB instead of dialing localhost.
type DB struct {
	stores *Stores
	sync   *SyncEngine
	merge  *MergeEngine
	branch Tag
}

// NewDB returns a DB bound to branch. branch need not already exist; its
// first Create call establishes it.
func NewDB(stores *Stores, sync *SyncEngine, merge *MergeEngine, branch Tag) *DB {
	return &DB{stores: stores, sync: sync, merge: merge, branch: branch}
}

// Branch returns the tag this handle is bound to.
func (d *DB) Branch() Tag { return d.branch }

// Head returns the current key(s) the bound branch points to. A branch with
// more than one head is in an unmerged, diverged state.
func (d *DB) Head() []Key {
	return d.stores.Tags.Read(d.branch)
}

// Create writes v as a new node whose predecessors are the branch's current
// head(s), and advances the branch tag to point at the new node alone.
func (d *DB) Create(v Value) (Key, error) {
	k, err := d.stores.Values.Write(v)
	if err != nil {
		return Key{}, err
	}
	preds := d.Head()
	if err := d.stores.Keys.Add(k, preds); err != nil {
		return Key{}, err
	}
	if err := d.stores.Tags.Update(d.branch, []Key{k}); err != nil {
		return Key{}, err
	}
	return k, nil
}

// Revert rewinds the branch to point directly at an already-known ancestor
// key, discarding no history (the discarded nodes remain in the key store,
// merely unreferenced by this tag) but moving the branch pointer backward.
func (d *DB) Revert(to Key) error {
	if !d.stores.Keys.Has(to) {
		return ErrNotFound
	}
	return d.stores.Tags.Update(d.branch, []Key{to})
}

// Merge three-way merges the bound branch's head with other's head under
// path, advancing the bound branch to the resulting key. Both branches must
// currently have exactly one head; a diverged (multi-head) branch must be
// merged down to one head first.
func (d *DB) Merge(path string, other Tag) (Key, error) {
	mine := d.Head()
	theirs := d.stores.Tags.Read(other)
	if len(mine) != 1 || len(theirs) != 1 {
		return Key{}, &Conflict{Path: path, Reason: "branch has more than one head"}
	}
	merged, err := d.merge.Merge(path, mine[0], theirs[0])
	if err != nil {
		return Key{}, err
	}
	if err := d.stores.Tags.Update(d.branch, []Key{merged}); err != nil {
		return Key{}, err
	}
	return merged, nil
}

// Watch subscribes to changes on the bound branch tag.
func (d *DB) Watch() (<-chan WatchEvent, func()) {
	return d.sync.Watch([]Tag{d.branch})
}
