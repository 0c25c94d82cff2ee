/*
scheduler.go - Periodic auto-sync trigger

PURPOSE:
  Owns the interval-driven refresh of open period views. Views register via
  OpenView/CloseView keyed by (projectID, monthNumber) - scheduling is
  decoupled from any UI widget's lifecycle. Each tick runs one synchronous
  fetch-merge-aggregate-persist cycle per open view; the engine's freeze
  gate decides whether the pass actually mutates anything (frozen periods
  and past periods are skipped).

DESIGN:
  - One background goroutine, one ticker, refcounted view registry
  - Multiple viewers of the same period share one entry: no duplicate
    timers racing each other over the merge
  - A failed pass only logs; the stored record stands and the next tick
    retries naturally (the ticker IS the retry policy)

CONFIGURATION:
  - Interval: How often to refresh open views (default: 1 minute)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewAutoSyncScheduler(engine)
  scheduler.Start()
  scheduler.OpenView("proj-1", 2)
  // ... later
  scheduler.CloseView("proj-1", 2)
  scheduler.Stop()

SEE ALSO:
  - finance/state.go: The freeze gate consulted by Engine.AutoSync
  - handlers.go: View open/close endpoints
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/finance-engine/finance"
)

type viewKey struct {
	ProjectID   finance.ProjectID
	MonthNumber int
}

// AutoSyncScheduler refreshes open period views on a fixed interval.
type AutoSyncScheduler struct {
	Engine   *finance.Engine
	Interval time.Duration
	Enabled  bool

	ticker  *time.Ticker
	stop    chan bool
	wg      sync.WaitGroup
	mu      sync.Mutex
	views   map[viewKey]int // refcount per open period view
	started bool
}

// NewAutoSyncScheduler creates a new scheduler.
func NewAutoSyncScheduler(engine *finance.Engine) *AutoSyncScheduler {
	return &AutoSyncScheduler{
		Engine:   engine,
		Interval: 1 * time.Minute,
		Enabled:  true,
		stop:     make(chan bool),
		views:    make(map[viewKey]int),
	}
}

// Start begins the scheduler.
func (s *AutoSyncScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if s.started {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	// Stop closed the previous channel; a restarted run loop needs a fresh
	// one or it exits on its first select.
	s.stop = make(chan bool)
	s.started = true
	s.wg.Add(1)

	go s.run()

	log.Printf("[Scheduler] Started with refresh interval: %v", s.Interval)
}

// Stop stops the scheduler, waiting for an in-flight pass to finish. The
// mutex is released before the wait: a running pass needs it to snapshot
// the view registry.
func (s *AutoSyncScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("[Scheduler] Stopped")
}

// OpenView registers a period view for periodic refresh. Refcounted:
// several viewers of the same period share one registration.
func (s *AutoSyncScheduler) OpenView(projectID finance.ProjectID, monthNumber int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[viewKey{ProjectID: projectID, MonthNumber: monthNumber}]++
}

// CloseView releases one viewer's registration.
func (s *AutoSyncScheduler) CloseView(projectID finance.ProjectID, monthNumber int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := viewKey{ProjectID: projectID, MonthNumber: monthNumber}
	if s.views[k] <= 1 {
		delete(s.views, k)
		return
	}
	s.views[k]--
}

// OpenViewCount reports how many distinct period views are registered.
func (s *AutoSyncScheduler) OpenViewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

func (s *AutoSyncScheduler) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ticker.C:
			s.refreshAll()
		case <-s.stop:
			return
		}
	}
}

// RunNow triggers an immediate refresh of all open views (testing/admin).
func (s *AutoSyncScheduler) RunNow() {
	s.refreshAll()
}

func (s *AutoSyncScheduler) refreshAll() {
	ctx := context.Background()

	s.mu.Lock()
	keys := make([]viewKey, 0, len(s.views))
	for k := range s.views {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	refreshed := 0
	skipped := 0
	for _, k := range keys {
		_, ok, err := s.Engine.AutoSync(ctx, k.ProjectID, k.MonthNumber)
		if err != nil {
			// Warning, not failure: the record keeps its last synced state
			// and the UI shows the stale-data indicator.
			log.Printf("[Scheduler] Sync failed for %s month %d: %v", k.ProjectID, k.MonthNumber, err)
			continue
		}
		if ok {
			refreshed++
		} else {
			skipped++
		}
	}

	if refreshed > 0 || skipped > 0 {
		log.Printf("[Scheduler] Completed: %d refreshed, %d skipped (frozen or not current)", refreshed, skipped)
	}
}
