package expr

import "sync"

// Cache memoizes compiled expressions by source. Game definitions carry
// condition strings that are evaluated every turn across many sessions; the
// cache makes compile-once the default without threading compiled handles
// through every definition struct. Safe for concurrent use.
type Cache struct {
	mu sync.RWMutex
	m  map[string]cacheEntry
}

type cacheEntry struct {
	expr *Expr
	err  error
}

func NewCache() *Cache {
	return &Cache{m: make(map[string]cacheEntry)}
}

// Get returns the compiled form of src, compiling on first use. Compile
// errors are cached too so a bad expression is reported once per source
// string, not once per evaluation.
func (c *Cache) Get(src string) (*Expr, error) {
	c.mu.RLock()
	e, ok := c.m[src]
	c.mu.RUnlock()
	if ok {
		return e.expr, e.err
	}

	compiled, err := Compile(src)
	c.mu.Lock()
	c.m[src] = cacheEntry{expr: compiled, err: err}
	c.mu.Unlock()
	return compiled, err
}
