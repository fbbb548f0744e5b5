package contacts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// IndexState represents the current state of the background indexer.
type IndexState int

const (
	IndexIdle IndexState = iota
	IndexRunning
	IndexError
)

// IndexResultMsg is a tea.Msg sent when an index run completes.
type IndexResultMsg struct {
	Contacts int
	Err      error
}

// runTimeout is the maximum time allowed for a single full index run.
const runTimeout = 10 * time.Minute

// Scheduler owns the background index runs for one account. Triggers are
// fire-and-forget: they never block the caller, duplicate triggers while
// a run is active are dropped, and run failures are only logged and
// reflected in the state, never surfaced to the triggering request.
type Scheduler struct {
	indexer   *Indexer
	log       *slog.Logger
	resultCh  chan IndexResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        sync.Mutex
	state     IndexState
	lastRun   time.Time
	running   bool
}

// NewScheduler creates a scheduler around the given indexer.
func NewScheduler(indexer *Indexer, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		indexer:   indexer,
		log:       log,
		resultCh:  make(chan IndexResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the run loop and returns a tea.Cmd that waits for the
// first result. Calling Start more than once is a no-op.
func (s *Scheduler) Start() tea.Cmd {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	go s.runLoop()

	return s.waitForResult()
}

// Stop halts the run loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	close(s.stopCh)
	s.running = false
}

// Trigger requests a full index run without blocking. A trigger arriving
// while a run is already queued or active is dropped.
func (s *Scheduler) Trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
		// A run is already pending; the new trigger adds nothing.
	}
}

// State returns the current indexer state.
func (s *Scheduler) State() IndexState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// runLoop waits for triggers and executes index runs one at a time.
func (s *Scheduler) runLoop() {
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.triggerCh:
			s.runOnce()
		}
	}
}

// runOnce executes a single index run and publishes its result.
func (s *Scheduler) runOnce() {
	s.setState(IndexRunning)

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	contacts, err := s.indexer.Run(ctx)
	if err != nil {
		s.log.Warn("background contact index failed", slog.String("error", err.Error()))
		s.setState(IndexError)
		s.sendResult(IndexResultMsg{Err: err})
		return
	}

	s.mu.Lock()
	s.state = IndexIdle
	s.lastRun = time.Now()
	s.mu.Unlock()

	s.sendResult(IndexResultMsg{Contacts: contacts})
}

// setState updates the indexer state.
func (s *Scheduler) setState(state IndexState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// sendResult publishes a result without blocking the run loop.
func (s *Scheduler) sendResult(msg IndexResultMsg) {
	select {
	case s.resultCh <- msg:
	default:
		// Drop if the UI is not draining results.
	}
}

// waitForResult returns a tea.Cmd that waits for the next run result.
func (s *Scheduler) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-s.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next run result.
// Call it after processing an IndexResultMsg to keep listening.
func (s *Scheduler) WaitForNextResult() tea.Cmd {
	return s.waitForResult()
}
