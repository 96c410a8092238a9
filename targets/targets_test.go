package targets

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/time/rate"

	"github.com/ggoodman/a11y-warehouse/a11yclient"
	"github.com/ggoodman/a11y-warehouse/ingest"
	"github.com/ggoodman/a11y-warehouse/jsonmap"
	"github.com/ggoodman/a11y-warehouse/mappings"
	"github.com/ggoodman/a11y-warehouse/warehouse"
	"github.com/ggoodman/a11y-warehouse/warehouse/memory"
)

const dataset = "rusty_a11y"

type fakeScanner struct {
	mu      sync.Mutex
	up      map[string]bool
	doc     any
	fail    map[string]error
	crawled []a11yclient.CrawlRequest
}

func (f *fakeScanner) Probe(ctx context.Context, target string) bool { return f.up[target] }

func (f *fakeScanner) Crawl(ctx context.Context, req a11yclient.CrawlRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crawled = append(f.crawled, req)
	if err := f.fail[req.URL]; err != nil {
		return nil, err
	}
	return f.doc, nil
}

func seed(t *testing.T, w warehouse.Warehouse, table string, rows any) {
	t.Helper()
	if _, err := warehouse.Store(context.Background(), w, dataset, table, rows); err != nil {
		t.Fatalf("seed %s: %v", table, err)
	}
}

func loadScan(t *testing.T) any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "scan.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	doc, err := jsonmap.Decode(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return doc
}

func quiet() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestReadUpTargetsSkipsIncomplete(t *testing.T) {
	w := memory.New()
	seed(t, w, UpTargetsTable, []any{
		map[string]any{"url": "https://a.example"},
		map[string]any{"note": "no url"},
		map[string]any{"url": "https://b.example"},
	})

	got, err := ReadUpTargets(context.Background(), w, dataset)
	if err != nil {
		t.Fatalf("ReadUpTargets() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, got); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}
}

func TestReadUpTargetsRejectsWrongType(t *testing.T) {
	w := memory.New()
	seed(t, w, UpTargetsTable, map[string]any{"url": true})

	if _, err := ReadUpTargets(context.Background(), w, dataset); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("want ErrInvalidTarget got %v", err)
	}
}

func TestReadCrawlTargets(t *testing.T) {
	w := memory.New()
	seed(t, w, CrawlTargetsTable, []any{
		map[string]any{"url": "https://a.example", "subdomains": true, "tld": false, "page_insights": true},
		map[string]any{"url": "https://b.example", "subdomains": true, "tld": false},
		map[string]any{"subdomains": true, "tld": false, "page_insights": false},
	})

	got, err := ReadCrawlTargets(context.Background(), w, dataset)
	if err != nil {
		t.Fatalf("ReadCrawlTargets() failed: %v", err)
	}
	want := []a11yclient.CrawlRequest{{URL: "https://a.example", Subdomains: true, PageInsights: true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}

	seed(t, w, CrawlTargetsTable, map[string]any{"url": "https://c.example", "subdomains": "yes", "tld": false, "page_insights": false})
	if _, err := ReadCrawlTargets(context.Background(), w, dataset); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("want ErrInvalidTarget got %v", err)
	}
}

func TestUpStoresStatus(t *testing.T) {
	w := memory.New()
	s := &fakeScanner{up: map[string]bool{"https://a.example": true}}
	r := NewRunner(s, nil, w, dataset, WithLogger(quiet()))

	st, err := r.Up(context.Background(), "https://a.example")
	if err != nil {
		t.Fatalf("Up() failed: %v", err)
	}
	if !st.Up {
		t.Fatal("want target up")
	}

	rows, _ := w.Rows(context.Background(), dataset, UpsTable)
	want := []map[string]any{{"target": "https://a.example", "status": true}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("ups mismatch (-want +got):\n%s", diff)
	}
}

func TestUpAll(t *testing.T) {
	w := memory.New()
	seed(t, w, UpTargetsTable, []any{
		map[string]any{"url": "https://a.example"},
		map[string]any{"url": "https://b.example"},
	})
	s := &fakeScanner{up: map[string]bool{"https://b.example": true}}
	r := NewRunner(s, nil, w, dataset, WithLogger(quiet()))

	got, err := r.UpAll(context.Background())
	if err != nil {
		t.Fatalf("UpAll() failed: %v", err)
	}
	want := []Status{{Target: "https://a.example"}, {Target: "https://b.example", Up: true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}

	rows, _ := w.Rows(context.Background(), dataset, UpsTable)
	if len(rows) != 2 || rows[0]["status"] != false || rows[1]["status"] != true {
		t.Fatalf("unexpected ups rows: %v", rows)
	}
}

func TestUpAllNoTargets(t *testing.T) {
	r := NewRunner(&fakeScanner{}, nil, memory.New(), dataset, WithLogger(quiet()))
	got, err := r.UpAll(context.Background())
	if err != nil {
		t.Fatalf("UpAll() failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want no statuses got %v", got)
	}
}

func TestUpAllHonoursLimiter(t *testing.T) {
	w := memory.New()
	seed(t, w, UpTargetsTable, []any{
		map[string]any{"url": "https://a.example"},
		map[string]any{"url": "https://b.example"},
	})
	// One token available, the next only after an hour.
	lim := rate.NewLimiter(rate.Every(time.Hour), 1)
	r := NewRunner(&fakeScanner{}, nil, w, dataset, WithLimiter(lim), WithLogger(quiet()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := r.UpAll(ctx); err == nil {
		t.Fatal("want limiter wait to fail before the second target")
	}
	rows, _ := w.Rows(context.Background(), dataset, UpsTable)
	if len(rows) != 0 {
		t.Fatal("an interrupted run must not store partial results")
	}
}

func TestCrawlAll(t *testing.T) {
	w := memory.New()
	seed(t, w, CrawlTargetsTable, []any{
		map[string]any{"url": "https://a.example", "subdomains": false, "tld": false, "page_insights": false},
		map[string]any{"url": "https://b.example", "subdomains": true, "tld": true, "page_insights": false},
	})
	s := &fakeScanner{
		doc:  loadScan(t),
		fail: map[string]error{"https://b.example": a11yclient.ErrRequest},
	}
	p := &ingest.Pipeline{
		Source:    mappings.Static{Set: mappings.Default()},
		Warehouse: w,
		Dataset:   dataset,
		Log:       quiet(),
	}
	r := NewRunner(s, p, w, dataset, WithLogger(quiet()))

	sum, err := r.CrawlAll(context.Background())
	if err != nil {
		t.Fatalf("CrawlAll() failed: %v", err)
	}
	if sum.Targets != 2 || sum.Ingested != 1 || len(sum.Failures) != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.Failures[0].URL != "https://b.example" {
		t.Fatalf("wrong failure reported: %+v", sum.Failures[0])
	}
	if len(s.crawled) != 2 || !s.crawled[1].Subdomains || !s.crawled[1].TLD {
		t.Fatalf("crawl requests not forwarded: %+v", s.crawled)
	}

	issues, _ := w.Rows(context.Background(), dataset, ingest.IssuesTable)
	if len(issues) != 3 {
		t.Fatalf("want 3 issue rows got %d", len(issues))
	}
}
