package core

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LogPath is the well-known path key under which the built-in log-append
// resolver is conventionally registered (see RegisterLogResolver).
const LogPath = "log"

// logEntry is one line of a log value: a Unix nanosecond timestamp, a tab,
// and an opaque payload. Lines that do not parse as "<ts>\t<payload>" sort
// after every well-formed entry, keyed by their raw text, so malformed input
// never panics the resolver.
type logEntry struct {
	ts      int64
	payload string
	raw     string
	ordinal bool
}

func parseLogLines(v Value) []logEntry {
	var entries []logEntry
	scanner := bufio.NewScanner(bytes.NewReader(v))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		tsStr, payload, found := strings.Cut(line, "\t")
		if !found {
			entries = append(entries, logEntry{raw: line})
			continue
		}
		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			entries = append(entries, logEntry{raw: line})
			continue
		}
		entries = append(entries, logEntry{ts: ts, payload: payload, raw: line, ordinal: true})
	}
	return entries
}

// MergeLogs merges two divergent append-only logs that share the common
// ancestor old: it concatenates old's entries (the LCA prefix, in their
// original order) with every entry of a or b that is not in old, each
// distinct line once (a line added on both sides appears once), sorted by
// ascending timestamp (malformed entries last, in lexical order of their raw
// text to keep the merge deterministic).
func MergeLogs(old *Value, a, b Value) (Value, error) {
	var oldEntries []logEntry
	if old != nil {
		oldEntries = parseLogLines(*old)
	}
	oldRaw := make(map[string]struct{}, len(oldEntries))
	for _, e := range oldEntries {
		oldRaw[e.raw] = struct{}{}
	}

	seen := make(map[string]struct{})
	var fresh []logEntry
	for _, e := range append(parseLogLines(a), parseLogLines(b)...) {
		if _, inOld := oldRaw[e.raw]; inOld {
			continue
		}
		if _, dup := seen[e.raw]; dup {
			continue
		}
		seen[e.raw] = struct{}{}
		fresh = append(fresh, e)
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		ei, ej := fresh[i], fresh[j]
		if ei.ordinal != ej.ordinal {
			return ei.ordinal // timestamped entries sort before malformed ones
		}
		if ei.ordinal {
			if ei.ts != ej.ts {
				return ei.ts < ej.ts
			}
			return ei.raw < ej.raw
		}
		return ei.raw < ej.raw
	})

	var buf bytes.Buffer
	for _, e := range oldEntries {
		fmt.Fprintln(&buf, e.raw)
	}
	for _, e := range fresh {
		fmt.Fprintln(&buf, e.raw)
	}
	return Value(buf.Bytes()), nil
}

// RegisterLogResolver installs MergeLogs under LogPath.
func RegisterLogResolver(m *MergeEngine) {
	m.Register(LogPath, MergeLogs)
}
