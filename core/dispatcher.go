package core

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Dispatcher decodes one request frame, routes it to the matching store or
// sync-engine operation, and encodes the response frame. One Dispatcher
// instance is created per accepted connection; it holds no per-connection
// state of its own beyond the shared Stores, SyncEngine, and MergeEngine.
type Dispatcher struct {
	stores  *Stores
	sync    *SyncEngine
	merge   *MergeEngine
	broker  *WatchBroker
	logger  *logrus.Logger
	metrics *Metrics
}

// NewDispatcher wires a dispatcher around the given components. merge may be
// nil: the action table has no merge request, so no handler uses it (merges
// are driven client-side, as in the CLI's merge command). broker may be
// nil, in which case direct tag-update requests do not notify watchers.
func NewDispatcher(stores *Stores, sync *SyncEngine, merge *MergeEngine, broker *WatchBroker, logger *logrus.Logger, metrics *Metrics) *Dispatcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{stores: stores, sync: sync, merge: merge, broker: broker, logger: logger, metrics: metrics}
}

// Dispatch decodes action/payload, executes the matching operation, and
// returns the response action/payload to write back. A non-nil err signals
// the caller (server.go's handleConn) to close the connection rather than
// write a response frame: this covers both ProtocolError (malformed
// payload, unknown action) and store-level failures on every mutating
// action except push_keys/push_tags, which have a defined failure path and
// instead report their error in the response payload (see writeFailure).
func (d *Dispatcher) Dispatch(action Action, payload []byte) (respAction Action, resp []byte, err error) {
	start := time.Now()
	defer func() {
		if d.metrics != nil {
			d.metrics.ObserveDispatch(action, time.Since(start))
		}
	}()

	switch action {
	case ActionKeyAdd:
		return d.handleKeyAdd(payload)
	case ActionKeyList:
		return d.handleKeyList(payload)
	case ActionKeyPred:
		return d.handleKeyPred(payload)
	case ActionValueWrite:
		return d.handleValueWrite(payload)
	case ActionValueRead:
		return d.handleValueRead(payload)
	case ActionTagUpdate:
		return d.handleTagUpdate(payload)
	case ActionTagRemove:
		return d.handleTagRemove(payload)
	case ActionTagRead:
		return d.handleTagRead(payload)
	case ActionTagList:
		return d.handleTagList(payload)
	case ActionSyncPullKeys:
		return d.handleSyncPullKeys(payload)
	case ActionSyncPullTags:
		return d.handleSyncPullTags(payload)
	case ActionSyncPushKeys:
		return d.handleSyncPushKeys(payload)
	case ActionSyncPushTags:
		return d.handleSyncPushTags(payload)
	default:
		return 0, nil, newProtocolError("unknown action", ErrUnknownAction)
	}
}

// --- key store handlers ---

func (d *Dispatcher) handleKeyAdd(payload []byte) (Action, []byte, error) {
	k, rest, err := readKey(payload)
	if err != nil {
		return 0, nil, newProtocolError("key-add: key", err)
	}
	preds, _, err := readKeySet(rest)
	if err != nil {
		return 0, nil, newProtocolError("key-add: preds", err)
	}
	if addErr := d.stores.Keys.Add(k, preds); addErr != nil {
		return 0, nil, addErr
	}
	return ActionKeyAdd, nil, nil
}

func (d *Dispatcher) handleKeyList(payload []byte) (Action, []byte, error) {
	return ActionKeyList, writeKeySet(nil, d.stores.Keys.List()), nil
}

func (d *Dispatcher) handleKeyPred(payload []byte) (Action, []byte, error) {
	k, _, err := readKey(payload)
	if err != nil {
		return 0, nil, newProtocolError("key-pred: key", err)
	}
	return ActionKeyPred, writeKeySet(nil, d.stores.Keys.Pred(k)), nil
}

// --- value store handlers ---

func (d *Dispatcher) handleValueWrite(payload []byte) (Action, []byte, error) {
	v, _, err := readBlob(payload)
	if err != nil {
		return 0, nil, newProtocolError("value-write: value", err)
	}
	k, werr := d.stores.Values.Write(Value(v))
	if werr != nil {
		return 0, nil, werr
	}
	return ActionValueWrite, writeOptionKey(nil, &k), nil
}

func (d *Dispatcher) handleValueRead(payload []byte) (Action, []byte, error) {
	k, _, err := readKey(payload)
	if err != nil {
		return 0, nil, newProtocolError("value-read: key", err)
	}
	v, ok := d.stores.Values.Read(k)
	if !ok {
		return ActionValueRead, writeOptionValue(nil, nil), nil
	}
	return ActionValueRead, writeOptionValue(nil, &v), nil
}

// --- tag store handlers ---

func (d *Dispatcher) handleTagUpdate(payload []byte) (Action, []byte, error) {
	t, rest, err := readString(payload)
	if err != nil {
		return 0, nil, newProtocolError("tag-update: tag", err)
	}
	keys, _, err := readKeySet(rest)
	if err != nil {
		return 0, nil, newProtocolError("tag-update: keys", err)
	}
	if uerr := d.stores.Tags.Update(Tag(t), keys); uerr != nil {
		return 0, nil, uerr
	}
	if d.broker != nil {
		d.broker.Publish([]Tag{Tag(t)})
	}
	return ActionTagUpdate, nil, nil
}

func (d *Dispatcher) handleTagRemove(payload []byte) (Action, []byte, error) {
	t, _, err := readString(payload)
	if err != nil {
		return 0, nil, newProtocolError("tag-remove: tag", err)
	}
	d.stores.Tags.Remove(Tag(t))
	return ActionTagRemove, nil, nil
}

func (d *Dispatcher) handleTagRead(payload []byte) (Action, []byte, error) {
	t, _, err := readString(payload)
	if err != nil {
		return 0, nil, newProtocolError("tag-read: tag", err)
	}
	return ActionTagRead, writeKeySet(nil, d.stores.Tags.Read(Tag(t))), nil
}

func (d *Dispatcher) handleTagList(payload []byte) (Action, []byte, error) {
	return ActionTagList, writeTagSet(nil, d.stores.Tags.List()), nil
}

// --- sync handlers ---

func (d *Dispatcher) handleSyncPullKeys(payload []byte) (Action, []byte, error) {
	roots, rest, err := readKeySet(payload)
	if err != nil {
		return 0, nil, newProtocolError("pull_keys: roots", err)
	}
	have, _, err := readTagSet(rest)
	if err != nil {
		return 0, nil, newProtocolError("pull_keys: have", err)
	}
	g := d.sync.PullKeys(roots, have)
	return ActionSyncPullKeys, writeGraph(nil, g), nil
}

func (d *Dispatcher) handleSyncPullTags(payload []byte) (Action, []byte, error) {
	return ActionSyncPullTags, writeTagBundle(nil, d.sync.PullTags()), nil
}

func (d *Dispatcher) handleSyncPushKeys(payload []byte) (Action, []byte, error) {
	g, rest, err := readGraph(payload)
	if err != nil {
		return 0, nil, newProtocolError("push_keys: graph", err)
	}
	bindings, _, err := readTagBundle(rest)
	if err != nil {
		return 0, nil, newProtocolError("push_keys: tags", err)
	}
	if perr := d.sync.PushKeys(g, bindings); perr != nil {
		return ActionSyncPushKeys, writeFailure(perr), nil
	}
	return ActionSyncPushKeys, nil, nil
}

func (d *Dispatcher) handleSyncPushTags(payload []byte) (Action, []byte, error) {
	bindings, _, err := readTagBundle(payload)
	if err != nil {
		return 0, nil, newProtocolError("push_tags: bindings", err)
	}
	if perr := d.sync.applyTagBindings(bindings); perr != nil {
		return ActionSyncPushTags, writeFailure(perr), nil
	}
	return ActionSyncPushTags, nil, nil
}

// writeFailure encodes push_keys/push_tags's defined structured failure
// path: a one-byte marker followed by the error's message. This structured
// response exists only for push, which has a defined failure path distinct
// from "request malformed"; every other mutating action instead raises its
// store error to Dispatch's caller, closing the connection as the failure
// signal. err must be non-nil.
func writeFailure(err error) []byte {
	buf := writeUint8(nil, tagSome)
	return writeString(buf, err.Error())
}
