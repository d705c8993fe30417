package migrate

import (
	"context"
	"fmt"
	"sync"
)

// Catalog answers schema questions with per-run caching. The catalog is
// assumed stable during a run because the pipeline serializes all writes;
// the session's DDL helpers write through InvalidateTable.
type Catalog struct {
	mu      sync.RWMutex
	tables  map[string]bool
	columns map[string]bool
	uniques map[string][]UniqueConstraint
}

func NewCatalog() *Catalog {
	return &Catalog{
		tables:  make(map[string]bool),
		columns: make(map[string]bool),
		uniques: make(map[string][]UniqueConstraint),
	}
}

func (c *Catalog) TableExists(ctx context.Context, s *Session, table string) (bool, error) {
	c.mu.RLock()
	if v, ok := c.tables[table]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	v, err := s.Dialect().TableExists(ctx, s, table)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	c.tables[table] = v
	c.mu.Unlock()
	return v, nil
}

func (c *Catalog) ColumnExists(ctx context.Context, s *Session, table, column string) (bool, error) {
	key := table + "." + column
	c.mu.RLock()
	if v, ok := c.columns[key]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	v, err := s.Dialect().ColumnExists(ctx, s, table, column)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	c.columns[key] = v
	c.mu.Unlock()
	return v, nil
}

func (c *Catalog) UniqueConstraints(ctx context.Context, s *Session, table string) ([]UniqueConstraint, error) {
	c.mu.RLock()
	if v, ok := c.uniques[table]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	v, err := s.Dialect().UniqueConstraints(ctx, s, table)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.uniques[table] = v
	c.mu.Unlock()
	return v, nil
}

// MaxId reads MAX(idColumn). Never cached: live data moves under the
// sequence repairer.
func (c *Catalog) MaxId(ctx context.Context, s *Session, table, idColumn string) (int64, error) {
	if err := checkIdent(table, idColumn); err != nil {
		return 0, err
	}
	var maxId int64
	// NULL (empty table) scans as 0, which is what repair wants.
	err := s.Query(ctx, &maxId, fmt.Sprintf("SELECT COALESCE(MAX(`%s`), 0) FROM `%s`", idColumn, table))
	return maxId, err
}

// InvalidateTable forgets everything cached about one table. Only the DDL
// helpers call it.
func (c *Catalog) InvalidateTable(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, table)
	delete(c.uniques, table)
	prefix := table + "."
	for k := range c.columns {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(c.columns, k)
		}
	}
}

// Reset drops the whole cache. The runner resets after the baseline
// migration, which can create many tables at once.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = make(map[string]bool)
	c.columns = make(map[string]bool)
	c.uniques = make(map[string][]UniqueConstraint)
}
