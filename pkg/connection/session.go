package connection

import (
	"context"
	"sync"
)

// Session scopes the operations issued against one live connection.
// Its context is cancelled when the connection ends, and Disconnect
// waits for every operation between Begin and End to unwind.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newSession() *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{ctx: ctx, cancel: cancel}
}

// Context is cancelled when the connection goes away.
func (s *Session) Context() context.Context { return s.ctx }

// Begin registers an in-flight operation. It returns false once the
// session has ended, in which case End must not be called.
func (s *Session) Begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

// End marks an operation started with Begin as finished.
func (s *Session) End() { s.wg.Done() }

// end cancels the session and, when wait is set, blocks until
// registered operations have returned.
func (s *Session) end(wait bool) {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	if wait {
		s.wg.Wait()
	}
}
