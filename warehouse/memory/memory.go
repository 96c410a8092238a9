// Package memory provides an in-process implementation of
// warehouse.Warehouse. It is intended for development and tests.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/ggoodman/a11y-warehouse/warehouse"
)

// Compile-time interface check
var _ warehouse.Warehouse = (*Warehouse)(nil)

// Warehouse keeps rows in memory, keyed by dataset and table.
type Warehouse struct {
	mu     sync.RWMutex
	tables map[string][]map[string]any
}

// New creates an empty in-memory warehouse.
func New() *Warehouse {
	return &Warehouse{tables: make(map[string][]map[string]any)}
}

// Insert appends a copy of every row in rs.
func (w *Warehouse) Insert(ctx context.Context, dataset, table string, rs *warehouse.RowSet) error {
	if dataset == "" || table == "" {
		return warehouse.ErrInvalidName
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := rs.Maps()

	w.mu.Lock()
	defer w.mu.Unlock()
	key := tableKey(dataset, table)
	w.tables[key] = append(w.tables[key], rows...)
	return nil
}

// Rows returns copies of the rows stored in dataset.table.
func (w *Warehouse) Rows(ctx context.Context, dataset, table string) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	stored := w.tables[tableKey(dataset, table)]
	out := make([]map[string]any, 0, len(stored))
	for _, row := range stored {
		out = append(out, maps.Clone(row))
	}
	return out, nil
}

// Truncate removes every row of dataset.table.
func (w *Warehouse) Truncate(ctx context.Context, dataset, table string) error {
	if dataset == "" || table == "" {
		return warehouse.ErrInvalidName
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	delete(w.tables, tableKey(dataset, table))
	w.mu.Unlock()
	return nil
}

// Close drops all stored rows.
func (w *Warehouse) Close() error {
	w.mu.Lock()
	clear(w.tables)
	w.mu.Unlock()
	return nil
}

func tableKey(dataset, table string) string {
	return dataset + "." + table
}
