package logctx

import (
	"context"
	"log/slog"
)

// Handler decorates records with the request and target data stored in the
// record's context.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		r.AddAttrs(slog.Group("req",
			slog.String("id", rd.RequestID),
			slog.String("method", rd.Method),
			slog.String("user_agent", rd.UserAgent),
			slog.String("remote_addr", rd.RemoteAddr),
			slog.String("path", rd.Path),
		))
	}

	if cd, ok := ctx.Value(callerDataKey{}).(*CallerData); ok {
		r.AddAttrs(slog.Group("caller",
			slog.String("id", cd.CallerID),
		))
	}

	if td, ok := ctx.Value(targetDataKey{}).(*TargetData); ok {
		r.AddAttrs(slog.Group("target",
			slog.String("url", td.URL),
			slog.Int("index", td.Index),
			slog.Int("total", td.Total),
		))
	}

	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type requestDataKey struct{}

type RequestData struct {
	RequestID  string
	Method     string
	UserAgent  string
	RemoteAddr string
	Path       string
}

func WithRequestData(ctx context.Context, data *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, data)
}

// RequestID returns the id of the request carried by ctx, if any.
func RequestID(ctx context.Context) string {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd.RequestID
	}
	return ""
}

type callerDataKey struct{}

type CallerData struct {
	CallerID string
}

func WithCallerData(ctx context.Context, data *CallerData) context.Context {
	return context.WithValue(ctx, callerDataKey{}, data)
}

type targetDataKey struct{}

// TargetData identifies one target while looping over a stored target list.
type TargetData struct {
	URL   string
	Index int
	Total int
}

func WithTargetData(ctx context.Context, data *TargetData) context.Context {
	return context.WithValue(ctx, targetDataKey{}, data)
}
