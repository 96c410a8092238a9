// Package targets reads the stored target lists and runs availability checks
// and crawls against them.
package targets

import (
	"context"
	"errors"
	"fmt"

	"github.com/ggoodman/a11y-warehouse/a11yclient"
	"github.com/ggoodman/a11y-warehouse/warehouse"
)

// Table names within the dataset.
const (
	UpTargetsTable    = "up_targets"
	CrawlTargetsTable = "crawl_targets"
	UpsTable          = "ups"
)

// ErrInvalidTarget is returned when a target row holds a value of the wrong
// type. Rows with missing values are skipped instead.
var ErrInvalidTarget = errors.New("targets: invalid target row")

// ReadUpTargets returns the url column of every up_targets row that has one.
func ReadUpTargets(ctx context.Context, w warehouse.Warehouse, dataset string) ([]string, error) {
	rows, err := w.Rows(ctx, dataset, UpTargetsTable)
	if err != nil {
		return nil, fmt.Errorf("targets: read %s.%s: %w", dataset, UpTargetsTable, err)
	}

	var out []string
	for i, row := range rows {
		u, ok, err := stringCell(row, "url")
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", ErrInvalidTarget, UpTargetsTable, i, err)
		}
		if ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// ReadCrawlTargets returns the crawl_targets rows that have all of url,
// subdomains, tld and page_insights set.
func ReadCrawlTargets(ctx context.Context, w warehouse.Warehouse, dataset string) ([]a11yclient.CrawlRequest, error) {
	rows, err := w.Rows(ctx, dataset, CrawlTargetsTable)
	if err != nil {
		return nil, fmt.Errorf("targets: read %s.%s: %w", dataset, CrawlTargetsTable, err)
	}

	var out []a11yclient.CrawlRequest
	for i, row := range rows {
		req, ok, err := crawlTarget(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", ErrInvalidTarget, CrawlTargetsTable, i, err)
		}
		if ok {
			out = append(out, req)
		}
	}
	return out, nil
}

func crawlTarget(row map[string]any) (a11yclient.CrawlRequest, bool, error) {
	var req a11yclient.CrawlRequest

	u, ok, err := stringCell(row, "url")
	if err != nil || !ok {
		return req, false, err
	}
	req.URL = u

	for col, dst := range map[string]*bool{
		"subdomains":    &req.Subdomains,
		"tld":           &req.TLD,
		"page_insights": &req.PageInsights,
	} {
		v, ok, err := boolCell(row, col)
		if err != nil || !ok {
			return req, false, err
		}
		*dst = v
	}
	return req, true, nil
}

func stringCell(row map[string]any, col string) (string, bool, error) {
	v, ok := row[col]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("column %q: want string, got %T", col, v)
	}
	return s, true, nil
}

func boolCell(row map[string]any, col string) (bool, bool, error) {
	v, ok := row[col]
	if !ok || v == nil {
		return false, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, false, fmt.Errorf("column %q: want bool, got %T", col, v)
	}
	return b, true, nil
}
