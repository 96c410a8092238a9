package targets

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/ggoodman/a11y-warehouse/a11yclient"
	"github.com/ggoodman/a11y-warehouse/ingest"
	"github.com/ggoodman/a11y-warehouse/internal/logctx"
	"github.com/ggoodman/a11y-warehouse/warehouse"
)

// Scanner is the part of the scanning service client the runner needs.
type Scanner interface {
	Crawl(ctx context.Context, req a11yclient.CrawlRequest) (any, error)
	Probe(ctx context.Context, target string) bool
}

// Ingester stores one scan result.
type Ingester interface {
	Ingest(ctx context.Context, doc any) (*ingest.Result, error)
}

// Status is one availability check, stored as a row of the ups table.
type Status struct {
	Target string `json:"target"`
	Up     bool   `json:"status"`
}

func (s Status) record() map[string]any {
	return map[string]any{"target": s.Target, "status": s.Up}
}

// CrawlFailure records a crawl target that could not be crawled or stored.
type CrawlFailure struct {
	URL string `json:"url"`
	Err string `json:"error"`
}

// CrawlSummary reports the outcome of crawling every stored target.
type CrawlSummary struct {
	Targets  int            `json:"targets"`
	Ingested int            `json:"ingested"`
	Failures []CrawlFailure `json:"failures,omitempty"`
}

// Runner works through target lists, waiting on a shared rate limiter before
// each request to the outside world.
type Runner struct {
	scanner   Scanner
	ingester  Ingester
	warehouse warehouse.Warehouse
	dataset   string
	limiter   *rate.Limiter
	log       *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLimiter paces the runner. The default does not limit.
func WithLimiter(l *rate.Limiter) RunnerOption {
	return func(r *Runner) { r.limiter = l }
}

// WithLogger sets the logger. If not provided, slog.Default is used.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

// NewRunner creates a runner reading and writing tables in dataset.
func NewRunner(s Scanner, in Ingester, w warehouse.Warehouse, dataset string, opts ...RunnerOption) *Runner {
	r := &Runner{
		scanner:   s,
		ingester:  in,
		warehouse: w,
		dataset:   dataset,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Up checks a single target and stores the result.
func (r *Runner) Up(ctx context.Context, target string) (Status, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Status{}, err
	}
	st := Status{Target: target, Up: r.scanner.Probe(ctx, target)}
	if _, err := warehouse.Store(ctx, r.warehouse, r.dataset, UpsTable, st.record()); err != nil {
		return st, fmt.Errorf("targets: failed to store up status: %w", err)
	}
	return st, nil
}

// UpAll checks every stored up target and stores all results in one write.
func (r *Runner) UpAll(ctx context.Context) ([]Status, error) {
	urls, err := ReadUpTargets(ctx, r.warehouse, r.dataset)
	if err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(urls))
	rows := make([]any, 0, len(urls))
	for i, u := range urls {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		tctx := logctx.WithTargetData(ctx, &logctx.TargetData{URL: u, Index: i, Total: len(urls)})
		st := Status{Target: u, Up: r.scanner.Probe(tctx, u)}
		r.log.DebugContext(tctx, "targets.up.checked", slog.Bool("up", st.Up))
		out = append(out, st)
		rows = append(rows, st.record())
	}

	if _, err := warehouse.Store(ctx, r.warehouse, r.dataset, UpsTable, rows); err != nil {
		return nil, fmt.Errorf("targets: failed to store up statuses: %w", err)
	}
	r.log.InfoContext(ctx, "targets.up.done", slog.Int("targets", len(out)))
	return out, nil
}

// CrawlAll crawls and ingests every stored crawl target. A failing target is
// logged and reported in the summary; it does not stop the run. Only
// failures reading the target list or cancellation of ctx return an error.
func (r *Runner) CrawlAll(ctx context.Context) (*CrawlSummary, error) {
	reqs, err := ReadCrawlTargets(ctx, r.warehouse, r.dataset)
	if err != nil {
		return nil, err
	}

	sum := &CrawlSummary{Targets: len(reqs)}
	for i, req := range reqs {
		if err := r.limiter.Wait(ctx); err != nil {
			return sum, err
		}
		tctx := logctx.WithTargetData(ctx, &logctx.TargetData{URL: req.URL, Index: i, Total: len(reqs)})
		if err := r.crawl(tctx, req); err != nil {
			r.log.WarnContext(tctx, "targets.crawl.fail", slog.String("err", err.Error()))
			sum.Failures = append(sum.Failures, CrawlFailure{URL: req.URL, Err: err.Error()})
			continue
		}
		sum.Ingested++
	}

	r.log.InfoContext(ctx, "targets.crawl.done",
		slog.Int("targets", sum.Targets),
		slog.Int("ingested", sum.Ingested),
		slog.Int("failed", len(sum.Failures)),
	)
	return sum, nil
}

func (r *Runner) crawl(ctx context.Context, req a11yclient.CrawlRequest) error {
	doc, err := r.scanner.Crawl(ctx, req)
	if err != nil {
		return err
	}
	_, err = r.ingester.Ingest(ctx, doc)
	return err
}
