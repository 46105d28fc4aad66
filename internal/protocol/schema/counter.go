package schema

import "sync"

// Counter hands out message identifiers in strictly increasing order.
// A single Counter shared across parses gives batch-wide ids.
type Counter struct {
	mu   sync.Mutex
	next int
}

func NewCounter(start int) *Counter {
	return &Counter{next: start}
}

// Peek returns the id the next reservation would receive.
func (c *Counter) Peek() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// commit runs build with the next free id and advances the counter by n
// only when build succeeds.
func (c *Counter) commit(n int, build func(first int) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := build(c.next); err != nil {
		return err
	}
	c.next += n
	return nil
}
