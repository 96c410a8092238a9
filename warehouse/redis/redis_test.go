package redis

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/ggoodman/a11y-warehouse/warehouse"
)

func TestRedisWarehouse(t *testing.T) {
	// Skip test if Redis is not available
	client := redis.NewClient(&redis.Options{
		Addr: "127.0.0.1:6379",
		DB:   3, // Use separate DB for warehouse tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	// Clean up test data
	defer client.FlushDB(ctx)

	w, err := New(Config{Client: client})
	if err != nil {
		t.Fatalf("Failed to create Redis warehouse: %v", err)
	}
	defer w.Close()

	t.Run("InsertAndRows", func(t *testing.T) {
		rs := &warehouse.RowSet{
			Columns: []string{"url", "errors", "score", "online", "note"},
			Rows: [][]any{
				{"https://a.gov", int64(2), 87.5, true, nil},
				{"https://b.gov", int64(0), 100.0, false, "ok"},
			},
		}
		if err := w.Insert(ctx, "ds", "crawls", rs); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}

		rows, err := w.Rows(ctx, "ds", "crawls")
		if err != nil {
			t.Fatalf("Rows() failed: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("want 2 rows, got %d", len(rows))
		}
		if rows[0]["errors"] != int64(2) || rows[0]["score"] != 87.5 || rows[0]["online"] != true {
			t.Fatalf("unexpected first row: %v", rows[0])
		}
		if _, ok := rows[0]["note"]; ok {
			t.Fatalf("nil cell should be absent: %v", rows[0])
		}
		if rows[1]["score"] != int64(100) {
			t.Fatalf("integral floats read back as integers, got %#v", rows[1]["score"])
		}
	})

	t.Run("Truncate", func(t *testing.T) {
		if err := w.Truncate(ctx, "ds", "crawls"); err != nil {
			t.Fatalf("Truncate() failed: %v", err)
		}
		rows, err := w.Rows(ctx, "ds", "crawls")
		if err != nil {
			t.Fatalf("Rows() failed: %v", err)
		}
		if len(rows) != 0 {
			t.Fatalf("want empty table, got %d rows", len(rows))
		}
	})

	t.Run("InvalidName", func(t *testing.T) {
		if err := w.Insert(ctx, "", "t", &warehouse.RowSet{}); err != warehouse.ErrInvalidName {
			t.Fatalf("want ErrInvalidName, got %v", err)
		}
	})
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without client")
	}
}
