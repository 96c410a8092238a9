// Package ingest turns one scan result into warehouse rows and the response
// returned to the caller.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ggoodman/a11y-warehouse/a11yclient"
	"github.com/ggoodman/a11y-warehouse/jsonmap"
	"github.com/ggoodman/a11y-warehouse/mappings"
	"github.com/ggoodman/a11y-warehouse/warehouse"
)

// Destination table names within the dataset.
const (
	IssuesTable = "issues"
	CrawlsTable = "crawls"
)

// IngestIDColumn is added to every stored row. Rows from the same scan result
// share a value.
const IngestIDColumn = "ingest_id"

// MapError reports a rule table that could not project the scan result.
type MapError struct {
	Table string
	Err   error
}

func (e *MapError) Error() string {
	return fmt.Sprintf("ingest: failed to map json data with %s: %v", e.Table, e.Err)
}

func (e *MapError) Unwrap() error { return e.Err }

// StoreError reports a failed warehouse write. Stored is the number of rows
// already written to Table before the failure.
type StoreError struct {
	Table  string
	Stored int
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ingest: failed to store data in %s: %v", e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Result describes one ingested scan result.
type Result struct {
	// IngestID is the value of the ingest_id column on every stored row.
	IngestID string
	// Response is the projection returned to the caller.
	Response any
	// Issues and Crawls count the rows stored in each table.
	Issues int
	Crawls int
}

// Pipeline projects scan results with the current mappings and stores them.
type Pipeline struct {
	Source    mappings.Source
	Warehouse warehouse.Warehouse
	Dataset   string
	Log       *slog.Logger
}

// Ingest validates doc, projects it with all three rule tables and stores the
// issue and crawl rows. Nothing is stored unless every projection succeeds.
//
// A document the scanning service did not mark successful is returned as
// *a11yclient.UpstreamFailure.
func (p *Pipeline) Ingest(ctx context.Context, doc any) (*Result, error) {
	if err := a11yclient.CheckSuccess(doc); err != nil {
		return nil, err
	}

	// A single generation of tables is used for the whole document, even if
	// the watcher swaps in a new one midway.
	set := p.Source.Current()

	issues, err := project(set.Issues, mappings.IssuesTable, doc)
	if err != nil {
		return nil, err
	}
	crawls, err := project(set.Crawls, mappings.CrawlsTable, doc)
	if err != nil {
		return nil, err
	}
	resp, err := project(set.Response, mappings.ResponseTable, doc)
	if err != nil {
		return nil, err
	}

	res := &Result{IngestID: uuid.NewString(), Response: resp}
	start := time.Now()

	res.Issues, err = warehouse.Store(ctx, p.Warehouse, p.Dataset, IssuesTable, stamp(issues, res.IngestID))
	if err != nil {
		return nil, &StoreError{Table: IssuesTable, Stored: res.Issues, Err: err}
	}
	res.Crawls, err = warehouse.Store(ctx, p.Warehouse, p.Dataset, CrawlsTable, stamp(crawls, res.IngestID))
	if err != nil {
		return nil, &StoreError{Table: CrawlsTable, Stored: res.Crawls, Err: err}
	}

	p.log().InfoContext(ctx, "ingest.stored",
		slog.String("ingest_id", res.IngestID),
		slog.Int("issues", res.Issues),
		slog.Int("crawls", res.Crawls),
		slog.Duration("dur", time.Since(start)),
	)
	return res, nil
}

func (p *Pipeline) log() *slog.Logger {
	if p.Log == nil {
		return slog.Default()
	}
	return p.Log
}

func project(t *jsonmap.RuleTable, name string, doc any) (any, error) {
	out, err := t.Project(doc)
	if err != nil {
		return nil, &MapError{Table: name, Err: err}
	}
	return out, nil
}

// stamp returns v with the ingest id set on every record. Records are copied
// so that the caller's projection is left untouched.
func stamp(v any, id string) any {
	switch v := v.(type) {
	case map[string]any:
		return stampRecord(v, id)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			if obj, ok := item.(map[string]any); ok {
				out[i] = stampRecord(obj, id)
			} else {
				out[i] = item
			}
		}
		return out
	default:
		return v
	}
}

func stampRecord(obj map[string]any, id string) map[string]any {
	out := make(map[string]any, len(obj)+1)
	for k, v := range obj {
		out[k] = v
	}
	out[IngestIDColumn] = id
	return out
}

// IsUpstreamFailure reports whether err came from an unsuccessful scan result.
func IsUpstreamFailure(err error) bool {
	var uf *a11yclient.UpstreamFailure
	return errors.As(err, &uf)
}
