package batch

import (
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// stmtKey identifies one rendered INSERT statement.
type stmtKey struct {
	Table   string
	Columns string
	Rows    int
}

func newStmtKey(table string, cols []string, rows int) stmtKey {
	return stmtKey{Table: table, Columns: strings.Join(cols, ","), Rows: rows}
}

// String returns the string representation of the key.
func (k stmtKey) String() string {
	return k.Table + ":" + k.Columns + ":" + strconv.Itoa(k.Rows)
}

// stmt is a rendered statement and the parameter names of its placeholders,
// in order.
type stmt struct {
	query string
	names []string
}

// stmtCache holds statement texts. Concurrent misses of one key render it
// once.
type stmtCache struct {
	mu     sync.RWMutex
	stmts  map[stmtKey]*stmt
	flight singleflight.Group
}

func newStmtCache() *stmtCache {
	return &stmtCache{stmts: make(map[stmtKey]*stmt)}
}

func (c *stmtCache) get(k stmtKey, render func() (*stmt, error)) (*stmt, error) {
	c.mu.RLock()
	s, ok := c.stmts[k]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}
	v, err, _ := c.flight.Do(k.String(), func() (any, error) {
		c.mu.RLock()
		s, ok := c.stmts[k]
		c.mu.RUnlock()
		if ok {
			return s, nil
		}
		s, err := render()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.stmts[k] = s
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*stmt), nil
}

func (c *stmtCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stmts)
}
