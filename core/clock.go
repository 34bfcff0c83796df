package core

import "sync"

// Clock hands out strictly increasing sequence numbers, for callers that
// have no better notion of time than "after the last thing I wrote". No
// component in this module uses it; the watch broker numbers its
// subscriptions with its own counter.
type Clock struct {
	mu   sync.Mutex
	next uint64
}

// Next returns the next value and advances the counter.
func (c *Clock) Next() uint64 {
	c.mu.Lock()
	v := c.next
	c.next++
	c.mu.Unlock()
	return v
}
