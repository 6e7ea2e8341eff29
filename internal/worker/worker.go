package worker

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultCacheSize = 16
)

// Config tunes a worker instance.
type Config struct {
	Timeout   time.Duration
	CacheSize int
}

// Worker processes requests one at a time in submission order. It is
// started lazily per open document and killed unconditionally on close;
// killing it abandons whatever request was in flight.
type Worker struct {
	requests chan Request
	ctx      context.Context
	cancel   context.CancelFunc
	respond  func(Response)
	cache    *lru.Cache[string, []byte]
	timeout  time.Duration
	busy     atomic.Bool
}

// Start launches a worker. respond is invoked from the worker goroutine for
// every completed request; the caller is responsible for discarding
// responses that arrive after it stopped caring.
func Start(cfg Config, respond func(Response)) *Worker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []byte](cfg.CacheSize)
	if err != nil {
		log.Printf("Error: failed to create page cache: %v", err)
		cache, _ = lru.New[string, []byte](DefaultCacheSize)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		requests: make(chan Request, 1),
		ctx:      ctx,
		cancel:   cancel,
		respond:  respond,
		cache:    cache,
		timeout:  cfg.Timeout,
	}
	go w.loop()
	return w
}

// Submit queues a request. It returns false when the worker is busy or
// dead; there is no second slot.
func (w *Worker) Submit(req Request) bool {
	if w.ctx.Err() != nil {
		return false
	}
	if w.busy.Load() {
		debugLog("worker busy, dropping request")
		return false
	}
	select {
	case w.requests <- req:
		return true
	default:
		debugLog("worker slot full, dropping request")
		return false
	}
}

// Kill tears the worker down. In-flight work is abandoned, not completed;
// its response will never be delivered.
func (w *Worker) Kill() {
	w.cancel()
}

// Alive reports whether the worker can still accept requests.
func (w *Worker) Alive() bool {
	return w.ctx.Err() == nil
}

func (w *Worker) loop() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case req := <-w.requests:
			w.busy.Store(true)
			resp := w.handleWithTimeout(req)
			w.busy.Store(false)
			if resp == nil || w.ctx.Err() != nil {
				return
			}
			w.respond(resp)
		}
	}
}

// handleWithTimeout bounds the round trip: a stuck decode surfaces as a
// generic failure once the timeout fires, and the handler goroutine is left
// to finish into the void.
func (w *Worker) handleWithTimeout(req Request) Response {
	done := make(chan Response, 1)
	go func() {
		done <- w.handle(req)
	}()

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()
	select {
	case resp := <-done:
		return resp
	case <-timer.C:
		log.Printf("Error: worker request timed out after %s", w.timeout)
		return FailureResponse{Reason: FailureGeneric, Err: ErrTimeout}
	case <-w.ctx.Done():
		return nil
	}
}

func (w *Worker) handle(req Request) Response {
	switch r := req.(type) {
	case OpenRequest:
		return openPDF(r)
	case ExtractRequest:
		return w.extract(r)
	default:
		return FailureResponse{Reason: FailureGeneric, Err: ErrKilled}
	}
}
