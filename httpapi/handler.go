package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"

	"github.com/ggoodman/a11y-warehouse/a11yclient"
	"github.com/ggoodman/a11y-warehouse/auth"
	"github.com/ggoodman/a11y-warehouse/ingest"
	"github.com/ggoodman/a11y-warehouse/internal/logctx"
	"github.com/ggoodman/a11y-warehouse/mappings"
	"github.com/ggoodman/a11y-warehouse/targets"
)

var _ http.Handler = (*Handler)(nil)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 1 << 20

var jsonMediaType = contenttype.NewMediaType("application/json")

var errEmptyBody = errors.New("empty body")

// Scanner is the part of the scanning service client the handler needs.
type Scanner interface {
	Scan(ctx context.Context, req a11yclient.ScanRequest) (any, error)
	Crawl(ctx context.Context, req a11yclient.CrawlRequest) (any, error)
}

// Ingester stores one scan result.
type Ingester interface {
	Ingest(ctx context.Context, doc any) (*ingest.Result, error)
}

// TargetRunner runs availability checks and crawls over stored targets.
type TargetRunner interface {
	Up(ctx context.Context, target string) (targets.Status, error)
	UpAll(ctx context.Context) ([]targets.Status, error)
	CrawlAll(ctx context.Context) (*targets.CrawlSummary, error)
}

// UpRequest asks for an availability check of a single target.
type UpRequest struct {
	Target string `json:"target,omitempty" jsonschema:"format=uri"`
}

// writeJSONError emits {"error":{"code":<status>,"message":"<reason>"}}.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSONErrorDetail(w, status, msg, nil)
}

func writeJSONErrorDetail(w http.ResponseWriter, status int, msg string, document any) {
	body := map[string]any{"code": status, "message": msg}
	if document != nil {
		body["document"] = document
	}
	writeJSON(w, status, map[string]any{"error": body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Option configures the Handler.
type Option func(*newConfig)

type newConfig struct {
	logger   *slog.Logger
	maxBody  int64
	mappings mappings.Source
	ready    func(context.Context) error
}

// WithLogger sets the logger. If not provided, slog.Default is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *newConfig) { c.logger = l }
}

// WithMaxBodyBytes caps request bodies. Non-positive values keep the default.
func WithMaxBodyBytes(n int64) Option {
	return func(c *newConfig) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithMappings exposes the given rule tables on GET /mappings.
func WithMappings(src mappings.Source) Option {
	return func(c *newConfig) { c.mappings = src }
}

// WithReadiness makes GET /ready report 503 while check fails.
func WithReadiness(check func(context.Context) error) Option {
	return func(c *newConfig) { c.ready = check }
}

// Handler serves the HTTP API.
type Handler struct {
	log      *slog.Logger
	auth     auth.Authenticator
	scanner  Scanner
	ingester Ingester
	runner   TargetRunner
	mappings mappings.Source
	ready    func(context.Context) error
	maxBody  int64
	schemas  map[string]any
	mux      *http.ServeMux
}

// New creates the API handler.
func New(authenticator auth.Authenticator, scanner Scanner, ingester Ingester, runner TargetRunner, opts ...Option) (*Handler, error) {
	if authenticator == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	if scanner == nil {
		return nil, fmt.Errorf("scanner is required")
	}
	if ingester == nil {
		return nil, fmt.Errorf("ingester is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("target runner is required")
	}

	cfg := &newConfig{logger: slog.Default(), maxBody: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(cfg)
	}

	h := &Handler{
		log:      slog.New(logctx.Handler{Handler: cfg.logger.Handler()}),
		auth:     authenticator,
		scanner:  scanner,
		ingester: ingester,
		runner:   runner,
		mappings: cfg.mappings,
		ready:    cfg.ready,
		maxBody:  cfg.maxBody,
		schemas:  requestSchemas(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /scan", h.handleScan)
	mux.HandleFunc("POST /crawl", h.handleCrawl)
	mux.HandleFunc("POST /up", h.handleUp)
	mux.HandleFunc("GET /ready", h.handleReady)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /schema", h.handleSchema)
	mux.HandleFunc("GET /mappings", h.handleMappings)
	h.mux = mux

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r.WithContext(logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})))
}

// checkAuthentication writes the challenge and returns false when the request
// is not authenticated. On success the caller is added to the returned
// context.
func (h *Handler) checkAuthentication(w http.ResponseWriter, r *http.Request) (context.Context, bool) {
	ctx := r.Context()
	p, err := auth.Authenticate(ctx, h.auth, r)
	if err != nil {
		ch := auth.ChallengeFor(err)
		h.log.InfoContext(ctx, "auth.fail", slog.String("err", err.Error()))
		writeJSONError(w, ch.Status, ch.Message)
		return ctx, false
	}
	ctx = logctx.WithCallerData(ctx, &logctx.CallerData{CallerID: p.ID()})
	h.log.DebugContext(ctx, "auth.ok")
	return ctx, true
}

// readBody reads the capped request body. An empty body returns errEmptyBody
// without checking the content type.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", mbe.Limit))
			return nil, err
		}
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("failed to read body data: %v", err))
		return nil, err
	}
	if len(data) == 0 {
		return nil, errEmptyBody
	}

	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		writeJSONError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		return nil, fmt.Errorf("unsupported content type")
	}
	return data, nil
}

// decodeBody reads and decodes a required JSON body into dst.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	data, err := h.readBody(w, r)
	if errors.Is(err, errEmptyBody) {
		writeJSONError(w, http.StatusBadRequest, "failed to parse body data: empty body")
		return false
	}
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse body data: %v", err))
		return false
	}
	return true
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, ok := h.checkAuthentication(w, r)
	if !ok {
		return
	}
	h.log.InfoContext(ctx, "http.scan.start")

	var body ScanBody
	if !h.decodeBody(w, r, &body) {
		h.log.WarnContext(ctx, "http.scan.bad_request")
		return
	}
	if body.URL == "" {
		writeJSONError(w, http.StatusBadRequest, "url is required")
		return
	}

	doc, err := h.scanner.Scan(ctx, body.request())
	if err != nil {
		h.writeUpstreamError(ctx, w, err)
		return
	}
	h.ingestAndRespond(ctx, w, doc)
	h.log.InfoContext(ctx, "http.scan.ok", slog.Duration("dur", time.Since(start)))
}

func (h *Handler) handleCrawl(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, ok := h.checkAuthentication(w, r)
	if !ok {
		return
	}
	h.log.InfoContext(ctx, "http.crawl.start")

	data, err := h.readBody(w, r)
	if errors.Is(err, errEmptyBody) {
		sum, err := h.runner.CrawlAll(ctx)
		if err != nil {
			h.log.ErrorContext(ctx, "http.crawl.targets.fail", slog.String("err", err.Error()))
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to crawl stored targets: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, sum)
		h.log.InfoContext(ctx, "http.crawl.ok", slog.Int("targets", sum.Targets), slog.Duration("dur", time.Since(start)))
		return
	}
	if err != nil {
		return
	}

	var body CrawlBody
	if err := json.Unmarshal(data, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse body data: %v", err))
		return
	}
	if body.URL == "" {
		writeJSONError(w, http.StatusBadRequest, "url is required")
		return
	}

	doc, err := h.scanner.Crawl(ctx, body.request())
	if err != nil {
		h.writeUpstreamError(ctx, w, err)
		return
	}
	h.ingestAndRespond(ctx, w, doc)
	h.log.InfoContext(ctx, "http.crawl.ok", slog.Duration("dur", time.Since(start)))
}

func (h *Handler) handleUp(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, ok := h.checkAuthentication(w, r)
	if !ok {
		return
	}

	data, err := h.readBody(w, r)
	if err != nil && !errors.Is(err, errEmptyBody) {
		return
	}

	body := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &body); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse body data: %v", err))
			return
		}
	}

	raw, ok := body["target"]
	if !ok {
		statuses, err := h.runner.UpAll(ctx)
		if err != nil {
			h.log.ErrorContext(ctx, "http.up.targets.fail", slog.String("err", err.Error()))
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to check stored targets: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "scanned %d target(s)", len(statuses))
		h.log.InfoContext(ctx, "http.up.ok", slog.Int("targets", len(statuses)), slog.Duration("dur", time.Since(start)))
		return
	}

	target, ok := raw.(string)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "target must be a string")
		return
	}
	st, err := h.runner.Up(ctx, target)
	if err != nil {
		h.log.ErrorContext(ctx, "http.up.fail", slog.String("err", err.Error()))
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store data in warehouse: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, st)
	h.log.InfoContext(ctx, "http.up.ok", slog.Bool("up", st.Up), slog.Duration("dur", time.Since(start)))
}

// ingestAndRespond stores doc and writes its response projection.
func (h *Handler) ingestAndRespond(ctx context.Context, w http.ResponseWriter, doc any) {
	res, err := h.ingester.Ingest(ctx, doc)
	if err != nil {
		var (
			uf   *a11yclient.UpstreamFailure
			merr *ingest.MapError
			serr *ingest.StoreError
		)
		switch {
		case errors.As(err, &uf):
			h.log.WarnContext(ctx, "ingest.upstream_failure")
			writeJSONErrorDetail(w, http.StatusFailedDependency, "the scanning service reported a failure", uf.Document)
		case errors.As(err, &merr):
			h.log.ErrorContext(ctx, "ingest.map.fail", slog.String("table", merr.Table), slog.String("err", merr.Err.Error()))
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to map json data: %v", merr.Err))
		case errors.As(err, &serr):
			h.log.ErrorContext(ctx, "ingest.store.fail", slog.String("table", serr.Table), slog.String("err", serr.Err.Error()))
			writeJSONError(w, http.StatusInternalServerError, "failed to store data in warehouse")
		default:
			h.log.ErrorContext(ctx, "ingest.fail", slog.String("err", err.Error()))
			writeJSONError(w, http.StatusInternalServerError, "ingest failed")
		}
		return
	}

	w.Header().Set("X-Ingest-Id", res.IngestID)
	writeJSON(w, http.StatusOK, res.Response)
}

func (h *Handler) writeUpstreamError(ctx context.Context, w http.ResponseWriter, err error) {
	h.log.ErrorContext(ctx, "a11y.fail", slog.String("err", err.Error()))
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, a11yclient.ErrRequest), errors.Is(err, a11yclient.ErrResponse):
		writeJSONError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.log.WarnContext(r.Context(), "http.ready.fail", slog.String("err", err.Error()))
			writeJSONError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.schemas)
}

func (h *Handler) handleMappings(w http.ResponseWriter, r *http.Request) {
	if h.mappings == nil {
		writeJSONError(w, http.StatusNotFound, "mappings are not exposed")
		return
	}
	set := h.mappings.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"merge_strategy":       set.Issues.MergeStrategy().String(),
		mappings.IssuesTable:   set.Issues.Rules(),
		mappings.CrawlsTable:   set.Crawls.Rules(),
		mappings.ResponseTable: set.Response.Rules(),
	})
}
