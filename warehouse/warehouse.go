// Package warehouse persists projected records as rows in named tables of a
// named dataset.
package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// DefaultBatchSize is the number of rows written per insert.
const DefaultBatchSize = 64

// Warehouse is a row store. Implementations must be safe for concurrent use.
type Warehouse interface {
	// Insert appends the rows of rs to dataset.table. Each call is one batch.
	Insert(ctx context.Context, dataset, table string, rs *RowSet) error

	// Rows returns every row of dataset.table in insertion order. Columns a
	// row was stored without are absent from its map.
	Rows(ctx context.Context, dataset, table string) ([]map[string]any, error)

	// Truncate removes every row of dataset.table. Truncating a table that
	// holds no rows is not an error.
	Truncate(ctx context.Context, dataset, table string) error

	// Close releases the backend's resources.
	Close() error
}

var (
	// ErrNotRecord is returned when a value is neither an object nor an
	// array of objects.
	ErrNotRecord = errors.New("warehouse: expected array or object")
	// ErrInvalidName is returned for empty dataset or table names.
	ErrInvalidName = errors.New("warehouse: dataset and table names are required")
)

// RowSet is a rectangular batch of rows sharing one column list.
type RowSet struct {
	Columns []string
	Rows    [][]any
}

// Len reports the number of rows.
func (rs *RowSet) Len() int { return len(rs.Rows) }

// Maps returns the rows keyed by column, omitting nil cells.
func (rs *RowSet) Maps() []map[string]any {
	out := make([]map[string]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		m := make(map[string]any, len(rs.Columns))
		for i, col := range rs.Columns {
			if row[i] != nil {
				m[col] = row[i]
			}
		}
		out = append(out, m)
	}
	return out
}

// Batches splits rs into consecutive row sets of at most size rows.
func (rs *RowSet) Batches(size int) []*RowSet {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out []*RowSet
	for start := 0; start < len(rs.Rows); start += size {
		end := min(start+size, len(rs.Rows))
		out = append(out, &RowSet{Columns: rs.Columns, Rows: rs.Rows[start:end]})
	}
	return out
}

// NewRowSet flattens a projected object, or array of objects, into rows.
// Columns are the union of all keys in first-seen order, with each object's
// keys visited in sorted order. Cells are converted to warehouse types: nil,
// int64, float64, string or bool. Nested objects and arrays have no column
// type and are stored as nil.
func NewRowSet(v any) (*RowSet, error) {
	var objs []map[string]any
	switch v := v.(type) {
	case map[string]any:
		objs = []map[string]any{v}
	case []any:
		for i, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: item %d is %T", ErrNotRecord, i, item)
			}
			objs = append(objs, obj)
		}
	default:
		return nil, fmt.Errorf("%w: got %T", ErrNotRecord, v)
	}

	rs := &RowSet{}
	index := make(map[string]int)
	for _, obj := range objs {
		for _, k := range slices.Sorted(maps.Keys(obj)) {
			if _, ok := index[k]; !ok {
				index[k] = len(rs.Columns)
				rs.Columns = append(rs.Columns, k)
			}
		}
	}

	for _, obj := range objs {
		row := make([]any, len(rs.Columns))
		for k, val := range obj {
			row[index[k]] = Cell(val)
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, nil
}

// Cell converts a decoded JSON value to a column value.
func Cell(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return nil
	case float64:
		if v == float64(int64(v)) {
			return int64(v)
		}
		return v
	case int:
		return int64(v)
	case int64:
		return v
	case string, bool:
		return v
	default:
		return nil
	}
}

// Store converts v to rows and inserts them in batches of DefaultBatchSize.
// An empty row set is not an error and performs no writes.
func Store(ctx context.Context, w Warehouse, dataset, table string, v any) (int, error) {
	if dataset == "" || table == "" {
		return 0, ErrInvalidName
	}
	rs, err := NewRowSet(v)
	if err != nil {
		return 0, err
	}
	stored := 0
	for _, batch := range rs.Batches(DefaultBatchSize) {
		if err := w.Insert(ctx, dataset, table, batch); err != nil {
			return stored, fmt.Errorf("warehouse: insert into %s.%s: %w", dataset, table, err)
		}
		stored += batch.Len()
	}
	return stored, nil
}
