package warehouse_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ggoodman/a11y-warehouse/warehouse"
	"github.com/ggoodman/a11y-warehouse/warehouse/memory"
)

func TestNewRowSetObject(t *testing.T) {
	rs, err := warehouse.NewRowSet(map[string]any{
		"url":    "https://a.gov",
		"score":  json.Number("87.5"),
		"errors": json.Number("2"),
		"online": true,
		"info":   map[string]any{"x": 1},
		"empty":  nil,
	})
	if err != nil {
		t.Fatalf("NewRowSet() failed: %v", err)
	}

	wantCols := []string{"empty", "errors", "info", "online", "score", "url"}
	if diff := cmp.Diff(wantCols, rs.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	wantRows := [][]any{{nil, int64(2), nil, true, 87.5, "https://a.gov"}}
	if diff := cmp.Diff(wantRows, rs.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRowSetColumnUnion(t *testing.T) {
	rs, err := warehouse.NewRowSet([]any{
		map[string]any{"b": "1", "a": "2"},
		map[string]any{"c": "3", "a": "4"},
	})
	if err != nil {
		t.Fatalf("NewRowSet() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, rs.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	want := [][]any{{"2", "1", nil}, {"4", nil, "3"}}
	if diff := cmp.Diff(want, rs.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRowSetRejectsNonRecords(t *testing.T) {
	for _, v := range []any{"scalar", json.Number("1"), nil, []any{map[string]any{}, "x"}} {
		if _, err := warehouse.NewRowSet(v); !errors.Is(err, warehouse.ErrNotRecord) {
			t.Fatalf("NewRowSet(%v): want ErrNotRecord, got %v", v, err)
		}
	}
}

func TestCell(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{json.Number("42"), int64(42)},
		{json.Number("4.2"), 4.2},
		{json.Number("1e400"), nil},
		{float64(3), int64(3)},
		{3.5, 3.5},
		{"s", "s"},
		{false, false},
		{nil, nil},
		{[]any{1}, nil},
		{map[string]any{}, nil},
	}
	for _, tt := range tests {
		if got := warehouse.Cell(tt.in); got != tt.want {
			t.Errorf("Cell(%#v) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

type countingWarehouse struct {
	*memory.Warehouse
	batches []int
	failAt  int
}

func (c *countingWarehouse) Insert(ctx context.Context, dataset, table string, rs *warehouse.RowSet) error {
	if c.failAt > 0 && len(c.batches)+1 == c.failAt {
		return errors.New("boom")
	}
	c.batches = append(c.batches, rs.Len())
	return c.Warehouse.Insert(ctx, dataset, table, rs)
}

func manyRows(n int) []any {
	rows := make([]any, n)
	for i := range rows {
		rows[i] = map[string]any{"n": json.Number(fmt.Sprint(i))}
	}
	return rows
}

func TestStoreBatches(t *testing.T) {
	ctx := context.Background()
	w := &countingWarehouse{Warehouse: memory.New()}

	n, err := warehouse.Store(ctx, w, "ds", "issues", manyRows(150))
	if err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	if n != 150 {
		t.Fatalf("want 150 stored, got %d", n)
	}
	if diff := cmp.Diff([]int{64, 64, 22}, w.batches); diff != "" {
		t.Fatalf("batches mismatch (-want +got):\n%s", diff)
	}

	rows, err := w.Rows(ctx, "ds", "issues")
	if err != nil {
		t.Fatalf("Rows() failed: %v", err)
	}
	if len(rows) != 150 || rows[149]["n"] != int64(149) {
		t.Fatalf("unexpected rows: %d, last %v", len(rows), rows[len(rows)-1])
	}
}

func TestStorePartialFailure(t *testing.T) {
	w := &countingWarehouse{Warehouse: memory.New(), failAt: 2}
	n, err := warehouse.Store(context.Background(), w, "ds", "issues", manyRows(100))
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 64 {
		t.Fatalf("want 64 rows stored before failure, got %d", n)
	}
}

func TestStoreEmptyList(t *testing.T) {
	w := &countingWarehouse{Warehouse: memory.New()}
	n, err := warehouse.Store(context.Background(), w, "ds", "issues", []any{})
	if err != nil || n != 0 || len(w.batches) != 0 {
		t.Fatalf("want no writes, got n=%d err=%v batches=%v", n, err, w.batches)
	}
}

func TestStoreRequiresNames(t *testing.T) {
	_, err := warehouse.Store(context.Background(), memory.New(), "", "t", map[string]any{})
	if !errors.Is(err, warehouse.ErrInvalidName) {
		t.Fatalf("want ErrInvalidName, got %v", err)
	}
}
