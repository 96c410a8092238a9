// Package redis provides a Redis-backed implementation of
// warehouse.Warehouse. Each table is a Redis list of JSON-encoded rows.
package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ggoodman/a11y-warehouse/warehouse"
)

// Compile-time interface check
var _ warehouse.Warehouse = (*Warehouse)(nil)

// Config contains configuration options for the Redis warehouse.
type Config struct {
	// Client is the Redis client instance
	Client *redis.Client

	// KeyPrefix is the prefix for all Redis keys
	// Default: "a11y:warehouse:"
	KeyPrefix string
}

// Warehouse implements warehouse.Warehouse on Redis lists.
type Warehouse struct {
	client    *redis.Client
	keyPrefix string
}

// New creates a Redis-backed warehouse.
func New(config Config) (*Warehouse, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if config.KeyPrefix == "" {
		config.KeyPrefix = "a11y:warehouse:"
	}

	return &Warehouse{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

// Insert appends every row of rs to the table's list in one pipeline.
func (w *Warehouse) Insert(ctx context.Context, dataset, table string, rs *warehouse.RowSet) error {
	if dataset == "" || table == "" {
		return warehouse.ErrInvalidName
	}

	rows := rs.Maps()
	if len(rows) == 0 {
		return nil
	}

	values := make([]any, 0, len(rows))
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		values = append(values, data)
	}

	key := w.buildKey(dataset, table)
	pipe := w.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push rows to %s: %w", key, err)
	}
	return nil
}

// Rows reads the whole table.
func (w *Warehouse) Rows(ctx context.Context, dataset, table string) ([]map[string]any, error) {
	key := w.buildKey(dataset, table)
	raw, err := w.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from %s: %w", key, err)
	}

	out := make([]map[string]any, 0, len(raw))
	for i, r := range raw {
		dec := json.NewDecoder(bytes.NewReader([]byte(r)))
		dec.UseNumber()
		var row map[string]any
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row %d of %s: %w", i, key, err)
		}
		for k, v := range row {
			row[k] = warehouse.Cell(v)
		}
		out = append(out, row)
	}
	return out, nil
}

// Truncate removes every row of dataset.table.
func (w *Warehouse) Truncate(ctx context.Context, dataset, table string) error {
	if dataset == "" || table == "" {
		return warehouse.ErrInvalidName
	}
	key := w.buildKey(dataset, table)
	if err := w.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client.
func (w *Warehouse) Close() error {
	return w.client.Close()
}

// buildKey constructs the Redis key for a table
func (w *Warehouse) buildKey(dataset, table string) string {
	return w.keyPrefix + dataset + ":" + table
}
