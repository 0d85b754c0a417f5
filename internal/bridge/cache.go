package bridge

import (
	"sort"
	"sync"

	"parambridge/internal/param"
)

// cache is the parameter cache together with its load-completion gate.
// Writes happen on the loop only; reads are safe from any goroutine.
type cache struct {
	mu      sync.RWMutex
	keys    map[param.ID]struct{} // descriptor keys
	values  map[param.ID]float64
	present int // descriptor keys with a value
	ready   bool
}

func newCache(descs map[param.ID]param.Descriptor) *cache {
	c := &cache{
		keys:   make(map[param.ID]struct{}, len(descs)),
		values: make(map[param.ID]float64, len(descs)),
	}
	for id := range descs {
		c.keys[id] = struct{}{}
	}
	c.ready = len(c.keys) == 0
	return c
}

// store writes v under id and reports whether this write opened the gate.
// Ids outside the descriptor set are stored but never count towards it.
func (c *cache) store(id param.ID, v float64) (opened bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, seen := c.values[id]
	c.values[id] = v
	if c.ready || seen {
		return false
	}
	if _, known := c.keys[id]; !known {
		return false
	}
	c.present++
	if c.present == len(c.keys) {
		c.ready = true
		return true
	}
	return false
}

func (c *cache) get(id param.ID) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[id]
	return v, ok
}

func (c *cache) isReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

func (c *cache) snapshot() map[param.ID]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[param.ID]float64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// missing lists descriptor keys without a value, sorted.
func (c *cache) missing() []param.ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []param.ID
	for k := range c.keys {
		if _, ok := c.values[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
