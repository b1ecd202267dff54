package client

import (
	"context"
	"sync"
	"time"

	"task-tracker/server/internal/models"
)

// DefaultDebounce matches the 500ms the dashboard UI waits after the
// last keystroke before searching.
const DefaultDebounce = 500 * time.Millisecond

// Searcher coalesces rapid query changes into a single request and
// cancels the superseded in-flight request, so a slow stale response can
// never overwrite fresher results.
type Searcher struct {
	client   *Client
	debounce time.Duration
	deliver  func(query string, tasks []models.Task, err error)

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
}

func NewSearcher(c *Client, debounce time.Duration, deliver func(query string, tasks []models.Task, err error)) *Searcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Searcher{client: c, debounce: debounce, deliver: deliver}
}

// Query schedules a search for q, replacing any pending or in-flight
// one.
func (s *Searcher) Query(status, q string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.timer = time.AfterFunc(s.debounce, func() {
		s.run(status, q)
	})
}

func (s *Searcher) run(status, q string) {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	tasks, err := s.client.ListTasks(ctx, status, q)

	s.mu.Lock()
	superseded := ctx.Err() != nil
	// A superseded run must leave s.cancel alone: it belongs to the
	// newer in-flight request by now.
	if !superseded {
		s.cancel = nil
	}
	s.mu.Unlock()
	cancel()

	if superseded {
		return
	}

	s.deliver(q, tasks, err)
}

// Stop drops any pending search and cancels the in-flight one.
func (s *Searcher) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
