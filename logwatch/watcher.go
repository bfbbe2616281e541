// Package logwatch broadcasts the text output of a running process to any number
// of independent waiters, each resolving on the first chunk that satisfies its
// predicate.
//
// Matching is evaluated per chunk. A marker that is split across two chunks is
// never detected; callers that need it must publish whole lines (see PumpLines).
package logwatch

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Wait when the stream ended before a match.
var ErrClosed = errors.New("log stream closed")

// Predicate reports whether a chunk satisfies a waiter.
type Predicate func(chunk string) bool

// Watcher fans out published chunks to all live subscriptions.
type Watcher struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// New creates an empty watcher.
func New() *Watcher {
	return &Watcher{
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscription is a single outstanding wait on a Watcher.
type Subscription struct {
	w     *Watcher
	match Predicate

	done  chan struct{}
	chunk string
	err   error
	once  sync.Once
}

// Subscribe registers a waiter. Only chunks published after Subscribe returns
// are evaluated against p.
func (w *Watcher) Subscribe(p Predicate) *Subscription {
	s := &Subscription{
		w:     w,
		match: p,
		done:  make(chan struct{}),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		s.resolve("", ErrClosed)
		return s
	}
	w.subs[s] = struct{}{}
	return s
}

// Publish delivers chunk to every live subscription. Subscriptions whose
// predicate holds are resolved and detached; the others keep waiting.
func (w *Watcher) Publish(chunk string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	for s := range w.subs {
		if s.match(chunk) {
			delete(w.subs, s)
			s.resolve(chunk, nil)
		}
	}
}

// Close ends the stream. Pending and future waits fail with ErrClosed.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	for s := range w.subs {
		s.resolve("", ErrClosed)
	}
	w.subs = nil
}

func (s *Subscription) resolve(chunk string, err error) {
	s.once.Do(func() {
		s.chunk = chunk
		s.err = err
		close(s.done)
	})
}

// Wait blocks until a matching chunk arrives, the stream closes or ctx is done.
// There is no implicit timeout: without a deadline on ctx, Wait blocks for as
// long as the predicate never matches.
func (s *Subscription) Wait(ctx context.Context) (string, error) {
	select {
	case <-s.done:
		return s.chunk, s.err
	case <-ctx.Done():
		s.Cancel()
		// A match may have raced with cancellation; prefer it.
		select {
		case <-s.done:
			if s.err == nil {
				return s.chunk, nil
			}
		default:
		}
		return "", ctx.Err()
	}
}

// Cancel detaches the subscription from its watcher.
func (s *Subscription) Cancel() {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if _, ok := s.w.subs[s]; ok {
		delete(s.w.subs, s)
		s.resolve("", context.Canceled)
	}
}
