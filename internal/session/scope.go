package session

import (
	"context"
	"sync"
	"time"
)

// callScopes owns one cancellable context per call. Every remote operation
// derives from it, so closing a tab aborts that call's in-flight requests.
type callScopes struct {
	mu      sync.Mutex
	timeout time.Duration
	scopes  map[string]callScope
}

type callScope struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newCallScopes(timeout time.Duration) *callScopes {
	return &callScopes{timeout: timeout, scopes: map[string]callScope{}}
}

func (s *callScopes) context(callID string) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.scopes[callID]; ok {
		return sc.ctx
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.scopes[callID] = callScope{ctx: ctx, cancel: cancel}
	return ctx
}

// op returns a context bounded by the remote timeout, the caller's context
// and the call's scope.
func (s *callScopes) op(parent context.Context, callID string) (context.Context, context.CancelFunc) {
	ctx, cancel := s.bounded(parent)
	if callID == "" {
		return ctx, cancel
	}
	stop := context.AfterFunc(s.context(callID), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// watch is op without the timeout, for long-lived streams.
func (s *callScopes) watch(parent context.Context, callID string) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(s.context(callID), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *callScopes) bounded(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if s.timeout > 0 {
		return context.WithTimeout(parent, s.timeout)
	}
	return context.WithCancel(parent)
}

func (s *callScopes) cancel(callID string) {
	s.mu.Lock()
	sc, ok := s.scopes[callID]
	delete(s.scopes, callID)
	s.mu.Unlock()
	if ok {
		sc.cancel()
	}
}

func (s *callScopes) cancelAll() {
	s.mu.Lock()
	scopes := s.scopes
	s.scopes = map[string]callScope{}
	s.mu.Unlock()
	for _, sc := range scopes {
		sc.cancel()
	}
}
