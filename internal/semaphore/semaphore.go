// Package semaphore implements a counting semaphore with FIFO waiters and a
// wait deadline on acquisition.
package semaphore

import (
	"container/list"
	"sync"
	"time"

	"github.com/moimran/netssh-go/internal/errors"
)

// Semaphore is a counting semaphore. Waiters are served in FIFO order.
type Semaphore struct {
	mu      sync.Mutex
	permits int
	waiters *list.List // of chan struct{}
	closed  bool
}

// Permit is an outstanding unit of concurrency. Release returns it; releasing
// twice is a no-op.
type Permit struct {
	sem  *Semaphore
	once sync.Once
}

// New creates a semaphore with the given number of permits.
func New(permits int) *Semaphore {
	return &Semaphore{
		permits: permits,
		waiters: list.New(),
	}
}

// Acquire obtains a permit, waiting up to timeout. A zero timeout means no
// wait: it behaves exactly like TryAcquire. Returns a SEMAPHORE error on
// timeout or when the semaphore is closed.
func (s *Semaphore) Acquire(timeout time.Duration) (*Permit, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New(errors.ErrSemaphore, "semaphore is closed", "")
	}
	if s.permits > 0 && s.waiters.Len() == 0 {
		s.permits--
		s.mu.Unlock()
		return &Permit{sem: s}, nil
	}
	if timeout == 0 {
		s.mu.Unlock()
		return nil, errors.New(errors.ErrSemaphore, "no permit available", "")
	}

	ready := make(chan struct{})
	elem := s.waiters.PushBack(ready)
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ready:
		return &Permit{sem: s}, nil
	case <-timer.C:
		s.mu.Lock()
		// The permit may have been granted between the timer firing and the
		// lock being taken; prefer the permit in that case.
		select {
		case <-ready:
			s.mu.Unlock()
			return &Permit{sem: s}, nil
		default:
		}
		s.waiters.Remove(elem)
		s.mu.Unlock()
		return nil, errors.New(errors.ErrSemaphore,
			"timed out waiting for a permit",
			"Raise concurrency.max_connections or concurrency.permit_acquire_timeout_ms.")
	}
}

// TryAcquire obtains a permit without waiting, or returns false.
func (s *Semaphore) TryAcquire() (*Permit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.permits == 0 || s.waiters.Len() > 0 {
		return nil, false
	}
	s.permits--
	return &Permit{sem: s}, true
}

// Release returns the permit. Safe to call multiple times.
func (p *Permit) Release() {
	p.once.Do(func() {
		p.sem.release()
	})
}

func (s *Semaphore) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if elem := s.waiters.Front(); elem != nil {
		s.waiters.Remove(elem)
		close(elem.Value.(chan struct{}))
		return
	}
	s.permits++
}

// Available reports the number of free permits.
func (s *Semaphore) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permits
}

// Close makes every later Acquire and TryAcquire call fail. Callers already
// queued in Acquire are not woken; each still waits for a released permit or
// its own timeout.
func (s *Semaphore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
