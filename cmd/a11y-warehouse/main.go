// Command a11y-warehouse serves the scan ingestion API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/ggoodman/a11y-warehouse/a11yclient"
	"github.com/ggoodman/a11y-warehouse/auth"
	"github.com/ggoodman/a11y-warehouse/httpapi"
	"github.com/ggoodman/a11y-warehouse/ingest"
	"github.com/ggoodman/a11y-warehouse/internal/config"
	"github.com/ggoodman/a11y-warehouse/internal/logctx"
	"github.com/ggoodman/a11y-warehouse/jsonmap"
	"github.com/ggoodman/a11y-warehouse/mappings"
	"github.com/ggoodman/a11y-warehouse/targets"
	"github.com/ggoodman/a11y-warehouse/warehouse"
	"github.com/ggoodman/a11y-warehouse/warehouse/memory"
	"github.com/ggoodman/a11y-warehouse/warehouse/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "a11y-warehouse: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	log := slog.New(logctx.Handler{Handler: slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wh, ready, err := openWarehouse(ctx, cfg)
	if err != nil {
		return err
	}
	defer wh.Close()

	strategy := jsonmap.WithMergeStrategy(cfg.Strategy())
	watcher, err := mappings.NewWatcher(cfg.MappingDir, log, strategy)
	if err != nil {
		return err
	}
	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.ErrorContext(ctx, "mappings.watch.fail", slog.String("err", err.Error()))
		}
	}()

	client, err := a11yclient.New(cfg.A11YURL, cfg.A11YJWT,
		a11yclient.WithTimeout(cfg.A11YTimeout),
		a11yclient.WithLogger(log),
	)
	if err != nil {
		return err
	}
	if exp, ok := client.TokenExpiry(); ok {
		if time.Until(exp) <= 0 {
			log.WarnContext(ctx, "a11y.token.expired", slog.Time("exp", exp))
		} else {
			log.InfoContext(ctx, "a11y.token.expiry", slog.Time("exp", exp))
		}
	}

	pipeline := &ingest.Pipeline{Source: watcher, Warehouse: wh, Dataset: cfg.Dataset, Log: log}
	runner := targets.NewRunner(client, pipeline, wh, cfg.Dataset,
		targets.WithLimiter(rate.NewLimiter(rate.Limit(cfg.TargetRate), cfg.TargetBurst)),
		targets.WithLogger(log),
	)

	h, err := httpapi.New(auth.NewSharedSecret(cfg.APIKey), client, pipeline, runner,
		httpapi.WithLogger(log),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
		httpapi.WithMappings(watcher),
		httpapi.WithReadiness(ready),
	)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "http.listen", slog.String("addr", ln.Addr().String()), slog.String("backend", cfg.Backend))

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv, ln, shutdownTimeout, log)
}

// serve runs srv on ln until ctx is done, then shuts it down. Requests run on
// a context of their own that is cancelled only once shutdown has finished or
// timed out, so in-flight scans and crawls can complete.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, timeout time.Duration, log *slog.Logger) error {
	reqCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()
	srv.BaseContext = func(net.Listener) context.Context { return reqCtx }

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("http.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http.shutdown.timeout", slog.String("err", err.Error()))
		return err
	}
	return nil
}

// openWarehouse returns the configured backend and its readiness check.
func openWarehouse(ctx context.Context, cfg config.Config) (warehouse.Warehouse, func(context.Context) error, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		wh, err := redis.New(redis.Config{Client: client, KeyPrefix: cfg.KeyPrefix})
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		ready := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return wh, ready, nil
	default:
		return memory.New(), nil, nil
	}
}
