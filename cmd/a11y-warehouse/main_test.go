package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"
)

type inflight struct {
	started  chan struct{}
	release  chan struct{}
	canceled chan struct{}
}

func newInflight() *inflight {
	return &inflight{
		started:  make(chan struct{}),
		release:  make(chan struct{}),
		canceled: make(chan struct{}),
	}
}

func (f *inflight) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	close(f.started)
	select {
	case <-f.release:
		w.WriteHeader(http.StatusOK)
	case <-r.Context().Done():
		close(f.canceled)
		w.WriteHeader(http.StatusServiceUnavailable)
	}
}

func startServe(t *testing.T, h http.Handler, timeout time.Duration) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, &http.Server{Handler: h}, ln, timeout, slog.New(slog.DiscardHandler))
	}()
	return "http://" + ln.Addr().String(), stop, done
}

func TestServeLetsInflightRequestsFinish(t *testing.T) {
	h := newInflight()
	url, stop, done := startServe(t, h, 5*time.Second)
	defer stop()

	status := make(chan int, 1)
	go func() {
		resp, err := http.Get(url)
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	select {
	case <-h.started:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the handler")
	}

	stop()

	select {
	case <-h.canceled:
		t.Fatal("request context cancelled when shutdown began")
	case <-time.After(200 * time.Millisecond):
	}

	close(h.release)
	if got := <-status; got != http.StatusOK {
		t.Fatalf("want %d got %d", http.StatusOK, got)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve() failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after shutdown")
	}
}

func TestServeCancelsRequestsAfterShutdownTimeout(t *testing.T) {
	h := newInflight()
	url, stop, done := startServe(t, h, 50*time.Millisecond)
	defer stop()

	go func() {
		if resp, err := http.Get(url); err == nil {
			resp.Body.Close()
		}
	}()
	<-h.started
	stop()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("want deadline exceeded got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after the shutdown timeout")
	}

	select {
	case <-h.canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("request context not cancelled after the shutdown timeout")
	}
}
