package core

import (
	"encoding/binary"
	"fmt"
)

// The wire codec implements sizeof/write/read for every transmittable type:
// fixed-width big-endian integers, length-prefixed blobs, and explicit
// discriminant bytes for sums and options.

const (
	tagNone byte = 0
	tagSome byte = 1
)

// --- uint8 ---

func sizeofUint8() int { return 1 }

func writeUint8(buf []byte, v uint8) []byte {
	return append(buf, v)
}

func readUint8(buf []byte) (uint8, []byte, error) {
	if len(buf) < 1 {
		return 0, buf, ErrShortRead
	}
	return buf[0], buf[1:], nil
}

// --- uint32 ---

func sizeofUint32() int { return 4 }

func writeUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func readUint32(buf []byte) (uint32, []byte, error) {
	if len(buf) < 4 {
		return 0, buf, ErrShortRead
	}
	return binary.BigEndian.Uint32(buf[:4]), buf[4:], nil
}

// --- uint64 ---

func sizeofUint64() int { return 8 }

func writeUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func readUint64(buf []byte) (uint64, []byte, error) {
	if len(buf) < 8 {
		return 0, buf, ErrShortRead
	}
	return binary.BigEndian.Uint64(buf[:8]), buf[8:], nil
}

// --- byte blob / string ---

func sizeofBlob(b []byte) int { return 4 + len(b) }

func writeBlob(buf []byte, b []byte) []byte {
	buf = writeUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func readBlob(buf []byte) ([]byte, []byte, error) {
	n, rest, err := readUint32(buf)
	if err != nil {
		return nil, buf, err
	}
	if uint64(len(rest)) < uint64(n) {
		return nil, buf, ErrShortRead
	}
	out := make([]byte, n)
	copy(out, rest[:n])
	return out, rest[n:], nil
}

func sizeofString(s string) int { return 4 + len(s) }

func writeString(buf []byte, s string) []byte {
	return writeBlob(buf, []byte(s))
}

func readString(buf []byte) (string, []byte, error) {
	b, rest, err := readBlob(buf)
	if err != nil {
		return "", buf, err
	}
	return string(b), rest, nil
}

// --- Key ---

func sizeofKey() int { return 32 }

func writeKey(buf []byte, k Key) []byte {
	return append(buf, k[:]...)
}

func readKey(buf []byte) (Key, []byte, error) {
	var k Key
	if len(buf) < 32 {
		return k, buf, ErrShortRead
	}
	copy(k[:], buf[:32])
	return k, buf[32:], nil
}

// --- Option<Key> ---

func sizeofOptionKey(k *Key) int {
	if k == nil {
		return 1
	}
	return 1 + sizeofKey()
}

func writeOptionKey(buf []byte, k *Key) []byte {
	if k == nil {
		return writeUint8(buf, tagNone)
	}
	buf = writeUint8(buf, tagSome)
	return writeKey(buf, *k)
}

func readOptionKey(buf []byte) (*Key, []byte, error) {
	tag, rest, err := readUint8(buf)
	if err != nil {
		return nil, buf, err
	}
	switch tag {
	case tagNone:
		return nil, rest, nil
	case tagSome:
		k, rest, err := readKey(rest)
		if err != nil {
			return nil, buf, err
		}
		return &k, rest, nil
	default:
		return nil, buf, newProtocolError("option tag", fmt.Errorf("unexpected tag %d", tag))
	}
}

// --- Option<Value> ---

func sizeofOptionValue(v *Value) int {
	if v == nil {
		return 1
	}
	return 1 + sizeofBlob(*v)
}

func writeOptionValue(buf []byte, v *Value) []byte {
	if v == nil {
		return writeUint8(buf, tagNone)
	}
	buf = writeUint8(buf, tagSome)
	return writeBlob(buf, *v)
}

func readOptionValue(buf []byte) (*Value, []byte, error) {
	tag, rest, err := readUint8(buf)
	if err != nil {
		return nil, buf, err
	}
	switch tag {
	case tagNone:
		return nil, rest, nil
	case tagSome:
		b, rest, err := readBlob(rest)
		if err != nil {
			return nil, buf, err
		}
		v := Value(b)
		return &v, rest, nil
	default:
		return nil, buf, newProtocolError("option tag", fmt.Errorf("unexpected tag %d", tag))
	}
}

// --- Set<Key> ---
//
// Encoded as a list in ascending order by Key's total order. The writer
// always canonicalizes; the reader accepts any order, since a remote peer
// running a different codec revision is still expected to decode correctly.

func sizeofKeySet(ks []Key) int {
	return 4 + len(ks)*sizeofKey()
}

func writeKeySet(buf []byte, ks []Key) []byte {
	sorted := SortKeys(ks)
	buf = writeUint32(buf, uint32(len(sorted)))
	for _, k := range sorted {
		buf = writeKey(buf, k)
	}
	return buf
}

func readKeySet(buf []byte) ([]Key, []byte, error) {
	n, rest, err := readUint32(buf)
	if err != nil {
		return nil, buf, err
	}
	out := make([]Key, 0, n)
	for i := uint32(0); i < n; i++ {
		var k Key
		k, rest, err = readKey(rest)
		if err != nil {
			return nil, buf, err
		}
		out = append(out, k)
	}
	return out, rest, nil
}

// --- Set<Tag> ---

func sizeofTagSet(ts []Tag) int {
	n := 4
	for _, t := range ts {
		n += sizeofString(string(t))
	}
	return n
}

func writeTagSet(buf []byte, ts []Tag) []byte {
	sorted := SortTags(ts)
	buf = writeUint32(buf, uint32(len(sorted)))
	for _, t := range sorted {
		buf = writeString(buf, string(t))
	}
	return buf
}

func readTagSet(buf []byte) ([]Tag, []byte, error) {
	n, rest, err := readUint32(buf)
	if err != nil {
		return nil, buf, err
	}
	out := make([]Tag, 0, n)
	for i := uint32(0); i < n; i++ {
		var s string
		s, rest, err = readString(rest)
		if err != nil {
			return nil, buf, err
		}
		out = append(out, Tag(s))
	}
	return out, rest, nil
}

// --- List<Edge> ---
//
// Edges are not a canonical set on the wire: they are emitted in BFS
// discovery order and duplicates are tolerated at the codec level, so no
// sorting happens here.

func sizeofEdgeList(es []Edge) int {
	return 4 + len(es)*(sizeofKey()*2)
}

func writeEdgeList(buf []byte, es []Edge) []byte {
	buf = writeUint32(buf, uint32(len(es)))
	for _, e := range es {
		buf = writeKey(buf, e.From)
		buf = writeKey(buf, e.To)
	}
	return buf
}

func readEdgeList(buf []byte) ([]Edge, []byte, error) {
	n, rest, err := readUint32(buf)
	if err != nil {
		return nil, buf, err
	}
	out := make([]Edge, 0, n)
	for i := uint32(0); i < n; i++ {
		var e Edge
		e.From, rest, err = readKey(rest)
		if err != nil {
			return nil, buf, err
		}
		e.To, rest, err = readKey(rest)
		if err != nil {
			return nil, buf, err
		}
		out = append(out, e)
	}
	return out, rest, nil
}

// --- Graph ---

func sizeofGraph(g Graph) int {
	return sizeofKeySet(g.Nodes) + sizeofEdgeList(g.Edges)
}

func writeGraph(buf []byte, g Graph) []byte {
	buf = writeKeySet(buf, g.Nodes)
	buf = writeEdgeList(buf, g.Edges)
	return buf
}

func readGraph(buf []byte) (Graph, []byte, error) {
	nodes, rest, err := readKeySet(buf)
	if err != nil {
		return Graph{}, buf, err
	}
	edges, rest, err := readEdgeList(rest)
	if err != nil {
		return Graph{}, buf, err
	}
	return Graph{Nodes: nodes, Edges: edges}, rest, nil
}

// --- List<TagBinding> ---

func sizeofTagBundle(tb []TagBinding) int {
	n := 4
	for _, b := range tb {
		n += sizeofString(string(b.Tag)) + sizeofKeySet(b.Keys)
	}
	return n
}

func writeTagBundle(buf []byte, tb []TagBinding) []byte {
	buf = writeUint32(buf, uint32(len(tb)))
	for _, b := range tb {
		buf = writeString(buf, string(b.Tag))
		buf = writeKeySet(buf, b.Keys)
	}
	return buf
}

func readTagBundle(buf []byte) ([]TagBinding, []byte, error) {
	n, rest, err := readUint32(buf)
	if err != nil {
		return nil, buf, err
	}
	out := make([]TagBinding, 0, n)
	for i := uint32(0); i < n; i++ {
		var b TagBinding
		var s string
		s, rest, err = readString(rest)
		if err != nil {
			return nil, buf, err
		}
		b.Tag = Tag(s)
		b.Keys, rest, err = readKeySet(rest)
		if err != nil {
			return nil, buf, err
		}
		out = append(out, b)
	}
	return out, rest, nil
}
