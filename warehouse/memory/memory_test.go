package memory

import (
	"context"
	"testing"

	"github.com/ggoodman/a11y-warehouse/warehouse"
)

func TestInsertAndRows(t *testing.T) {
	w := New()
	defer w.Close()

	ctx := context.Background()
	rs := &warehouse.RowSet{
		Columns: []string{"target", "status"},
		Rows:    [][]any{{"https://a.gov", true}, {"https://b.gov", nil}},
	}
	if err := w.Insert(ctx, "ds", "ups", rs); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	rows, err := w.Rows(ctx, "ds", "ups")
	if err != nil {
		t.Fatalf("Rows() failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(rows))
	}
	if rows[0]["status"] != true {
		t.Fatalf("unexpected first row: %v", rows[0])
	}
	if _, ok := rows[1]["status"]; ok {
		t.Fatalf("nil cell should be absent: %v", rows[1])
	}

	// Returned rows are copies.
	rows[0]["status"] = false
	again, _ := w.Rows(ctx, "ds", "ups")
	if again[0]["status"] != true {
		t.Fatal("Rows() leaked internal state")
	}
}

func TestTablesAreIsolated(t *testing.T) {
	w := New()
	ctx := context.Background()
	rs := &warehouse.RowSet{Columns: []string{"a"}, Rows: [][]any{{"x"}}}

	if err := w.Insert(ctx, "ds", "one", rs); err != nil {
		t.Fatal(err)
	}
	rows, _ := w.Rows(ctx, "ds", "two")
	if len(rows) != 0 {
		t.Fatalf("want empty table, got %v", rows)
	}

	if err := w.Truncate(ctx, "ds", "one"); err != nil {
		t.Fatalf("Truncate() failed: %v", err)
	}
	rows, _ = w.Rows(ctx, "ds", "one")
	if len(rows) != 0 {
		t.Fatalf("want truncated table, got %v", rows)
	}
}

func TestTruncate(t *testing.T) {
	w := New()
	ctx := context.Background()

	if err := w.Truncate(ctx, "ds", "missing"); err != nil {
		t.Fatalf("truncating an empty table: %v", err)
	}
	if err := w.Truncate(ctx, "", "t"); err != warehouse.ErrInvalidName {
		t.Fatalf("want ErrInvalidName, got %v", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := w.Truncate(cctx, "ds", "t"); err == nil {
		t.Fatal("expected context error")
	}

	var wh warehouse.Warehouse = w
	if err := wh.Truncate(ctx, "ds", "t"); err != nil {
		t.Fatalf("Truncate() through the interface failed: %v", err)
	}
}

func TestInsertCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New().Insert(ctx, "ds", "t", &warehouse.RowSet{})
	if err == nil {
		t.Fatal("expected context error")
	}
}
