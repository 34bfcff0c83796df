package core

import (
	"fmt"
	"net"
	"sync"
)

// Client is a typed remote proxy over a single net.Conn, implementing the
// thirteen request/response actions plus watch as ordinary Go method calls.
// A Client serializes access to its connection: only one request may be
// outstanding at a time, matching the dispatcher's strict per-connection
// FIFO request/response contract.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

// Dial opens a TCP connection to addr and wraps it in a Client.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an already-open channel.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// roundTrip writes one request frame and reads back exactly one response
// frame, holding the client's mutex for the duration.
func (c *Client) roundTrip(action Action, payload []byte) (Action, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := WriteFrame(c.conn, action, payload); err != nil {
		return 0, nil, err
	}
	return ReadFrame(c.conn)
}

// decodeResult decodes push_keys/push_tags's response: an empty payload
// means success, a non-empty one is a tagSome marker followed by the
// failure message (see writeFailure in dispatcher.go). Every other
// mutating action reports failure by closing the connection instead, so
// its caller never needs decodeResult: a nil roundTrip error already means
// success.
func decodeResult(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, rest, err := readUint8(payload)
	if err != nil {
		return err
	}
	msg, _, err := readString(rest)
	if err != nil {
		return err
	}
	return fmt.Errorf("%s", msg)
}

// KeyAdd inserts k with predecessor set preds. A store-level failure (e.g.
// a dangling predecessor) closes the connection; roundTrip surfaces that as
// its own error.
func (c *Client) KeyAdd(k Key, preds []Key) error {
	buf := writeKey(nil, k)
	buf = writeKeySet(buf, preds)
	_, _, err := c.roundTrip(ActionKeyAdd, buf)
	return err
}

// KeyList returns every key known to the remote store.
func (c *Client) KeyList() ([]Key, error) {
	_, resp, err := c.roundTrip(ActionKeyList, nil)
	if err != nil {
		return nil, err
	}
	ks, _, err := readKeySet(resp)
	return ks, err
}

// KeyPred returns the remote predecessor set of k.
func (c *Client) KeyPred(k Key) ([]Key, error) {
	_, resp, err := c.roundTrip(ActionKeyPred, writeKey(nil, k))
	if err != nil {
		return nil, err
	}
	ks, _, err := readKeySet(resp)
	return ks, err
}

// ValueWrite stores v and returns its content-derived key.
func (c *Client) ValueWrite(v Value) (Key, error) {
	_, resp, err := c.roundTrip(ActionValueWrite, writeBlob(nil, v))
	if err != nil {
		return Key{}, err
	}
	k, _, err := readOptionKey(resp)
	if err != nil {
		return Key{}, err
	}
	if k == nil {
		return Key{}, ErrConflict
	}
	return *k, nil
}

// ValueRead fetches the value stored under k.
func (c *Client) ValueRead(k Key) (Value, bool, error) {
	_, resp, err := c.roundTrip(ActionValueRead, writeKey(nil, k))
	if err != nil {
		return nil, false, err
	}
	v, _, err := readOptionValue(resp)
	if err != nil {
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	return *v, true, nil
}

// TagUpdate rebinds t to keys. A store-level failure (e.g. a dangling key)
// closes the connection; roundTrip surfaces that as its own error.
func (c *Client) TagUpdate(t Tag, keys []Key) error {
	buf := writeString(nil, string(t))
	buf = writeKeySet(buf, keys)
	_, _, err := c.roundTrip(ActionTagUpdate, buf)
	return err
}

// TagRemove deletes t. Remove never fails, so this only reports transport
// errors.
func (c *Client) TagRemove(t Tag) error {
	_, _, err := c.roundTrip(ActionTagRemove, writeString(nil, string(t)))
	return err
}

// TagRead returns the keys currently bound to t.
func (c *Client) TagRead(t Tag) ([]Key, error) {
	_, resp, err := c.roundTrip(ActionTagRead, writeString(nil, string(t)))
	if err != nil {
		return nil, err
	}
	ks, _, err := readKeySet(resp)
	return ks, err
}

// TagList returns every tag defined on the remote store.
func (c *Client) TagList() ([]Tag, error) {
	_, resp, err := c.roundTrip(ActionTagList, nil)
	if err != nil {
		return nil, err
	}
	ts, _, err := readTagSet(resp)
	return ts, err
}

// PullKeys fetches the subgraph reachable from roots, excluding everything
// already covered by the tags in have.
func (c *Client) PullKeys(roots []Key, have []Tag) (Graph, error) {
	buf := writeKeySet(nil, roots)
	buf = writeTagSet(buf, have)
	_, resp, err := c.roundTrip(ActionSyncPullKeys, buf)
	if err != nil {
		return Graph{}, err
	}
	g, _, err := readGraph(resp)
	return g, err
}

// PullTags fetches a snapshot of every tag binding on the remote store.
func (c *Client) PullTags() ([]TagBinding, error) {
	_, resp, err := c.roundTrip(ActionSyncPullTags, nil)
	if err != nil {
		return nil, err
	}
	tb, _, err := readTagBundle(resp)
	return tb, err
}

// PushKeys uploads g's nodes and edges plus tag updates. The caller must
// have already written every new node's value with ValueWrite: push_keys
// only transfers the DAG shape and tag bindings, not value bytes (see
// SPEC_FULL.md §9).
func (c *Client) PushKeys(g Graph, tagUpdates []TagBinding) error {
	buf := writeGraph(nil, g)
	buf = writeTagBundle(buf, tagUpdates)
	_, resp, err := c.roundTrip(ActionSyncPushKeys, buf)
	if err != nil {
		return err
	}
	return decodeResult(resp)
}

// PushTags uploads tag bindings without any accompanying graph.
func (c *Client) PushTags(bindings []TagBinding) error {
	_, resp, err := c.roundTrip(ActionSyncPushTags, writeTagBundle(nil, bindings))
	if err != nil {
		return err
	}
	return decodeResult(resp)
}

// Watch opens a dedicated connection to addr and streams WatchEvents for
// tags until the returned cancel func is called or the connection drops.
// Watch owns its connection exclusively: because a watch subscription turns
// the channel into a pure server-to-client stream for its lifetime, it
// cannot share a Client used for ordinary request/response calls.
func Watch(addr string, tags []Tag) (<-chan WatchEvent, func() error, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	if err := WriteFrame(conn, ActionSyncWatch, writeTagSet(nil, tags)); err != nil {
		conn.Close()
		return nil, nil, err
	}

	out := make(chan WatchEvent, 8)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			action, payload, err := ReadFrame(conn)
			if err != nil || action != ActionSyncWatch {
				return
			}
			changed, rest, err := readTagSet(payload)
			if err != nil {
				return
			}
			g, _, err := readGraph(rest)
			if err != nil {
				return
			}
			select {
			case out <- WatchEvent{Changed: changed, Graph: g}:
			case <-done:
				return
			}
		}
	}()

	cancel := func() error {
		close(done)
		return conn.Close()
	}
	return out, cancel, nil
}
