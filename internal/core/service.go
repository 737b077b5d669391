package core

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Default engine timeouts, used when Options leaves them zero.
const (
	DefaultOperationTimeout = 15 * time.Second
	DefaultLoadTimeout      = 30 * time.Second

	// staleRetryInterval spaces out read-triggered reloads while the store
	// is failing.
	staleRetryInterval = time.Second
)

// Options tunes a Service.
type Options struct {
	// SerializeWrites holds a per-category lock from resolve through reload.
	// Without it two concurrent sales can read the same stock value and the
	// later write wins.
	SerializeWrites bool

	// WriteWait bounds how long a writer waits for its category lock.
	WriteWait time.Duration

	// OperationTimeout bounds one transaction, reload included.
	OperationTimeout time.Duration

	// JournalSize is the number of transactions kept in memory.
	JournalSize int
}

// Service owns the inventory snapshot and applies transactions against a
// Store. It replaces process-wide inventory state: construct one per store
// and share it between request handlers.
type Service struct {
	store   Store
	opts    Options
	locks   *WriteLocks
	journal *Journal

	mu       sync.RWMutex
	snap     *Snapshot
	stale    bool
	lastErr  error
	reloads  int
	attempt  time.Time
	reloadMu sync.Mutex
}

// NewService creates a Service. Call Load before serving requests.
func NewService(store Store, opts Options) *Service {
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = DefaultOperationTimeout
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = DefaultWriteWait
	}

	s := &Service{
		store:   store,
		opts:    opts,
		journal: NewJournal(opts.JournalSize),
		snap:    EmptySnapshot(store.Name()),
		stale:   true,
	}
	if opts.SerializeWrites {
		s.locks = NewWriteLocks(opts.WriteWait)
	}
	return s
}

// Load performs the initial full load. A failure leaves an empty snapshot in
// place and marks it stale so the next read retries; the error is returned
// for the caller to log, not to abort startup.
func (s *Service) Load(ctx context.Context) error {
	return s.Reload(ctx)
}

// Reload replaces the snapshot with a fresh full load of the store. On
// failure the previous snapshot stays readable and is flagged stale.
func (s *Service) Reload(ctx context.Context) error {
	// One load at a time; a caller that waited behind another reload still
	// performs its own so it observes its own write.
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	snap, err := s.store.LoadAll(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempt = time.Now()
	if err != nil {
		s.stale = true
		s.lastErr = err
		slog.Warn("inventory reload failed",
			"store", s.store.Name(),
			"error", err,
		)
		return err
	}

	s.snap = snap
	s.stale = false
	s.lastErr = nil
	s.reloads++
	slog.Debug("inventory reloaded",
		"store", s.store.Name(),
		"categories", snap.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Snapshot returns the current snapshot. When the last load failed it
// retries once before answering, so reads recover without a restart.
func (s *Service) Snapshot(ctx context.Context) *Snapshot {
	s.mu.RLock()
	snap, stale, attempt := s.snap, s.stale, s.attempt
	s.mu.RUnlock()

	if !stale || time.Since(attempt) < staleRetryInterval {
		return snap
	}
	if err := s.Reload(ctx); err != nil {
		return snap
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Categories lists the categories of the current snapshot in store order.
func (s *Service) Categories(ctx context.Context) []CategoryRef {
	return s.Snapshot(ctx).Categories()
}

// Grid returns a category's grid by sanitized token or original name,
// along with the original name. ok is false when no category matches.
func (s *Service) Grid(ctx context.Context, name string) (original string, grid Grid, ok bool) {
	return s.Snapshot(ctx).Lookup(name)
}

// Journal exposes the in-memory transaction journal.
func (s *Service) Journal() *Journal { return s.journal }

// Locks returns the write lock table, or nil when writes are not serialized.
func (s *Service) Locks() *WriteLocks { return s.locks }

// StoreName identifies the backing store.
func (s *Service) StoreName() string { return s.store.Name() }

// Status is a point-in-time summary for health and status endpoints.
type Status struct {
	Store           string           `json:"store"`
	Categories      int              `json:"categories"`
	LoadedAt        time.Time        `json:"loaded_at"`
	Stale           bool             `json:"stale"`
	LastError       string           `json:"last_error,omitempty"`
	Reloads         int              `json:"reloads"`
	SerializeWrites bool             `json:"serialize_writes"`
	WriteLocks      *WriteLockStatus `json:"write_locks,omitempty"`
	Journal         int              `json:"journal_entries"`
}

// Status reports the snapshot state without touching the store.
func (s *Service) Status() Status {
	s.mu.RLock()
	st := Status{
		Store:           s.store.Name(),
		Categories:      s.snap.Len(),
		LoadedAt:        s.snap.LoadedAt,
		Stale:           s.stale,
		Reloads:         s.reloads,
		SerializeWrites: s.locks != nil,
		Journal:         s.journal.Len(),
	}
	if s.lastErr != nil {
		st.LastError = MapError(s.lastErr).Message
	}
	s.mu.RUnlock()

	if s.locks != nil {
		ls := s.locks.Status()
		st.WriteLocks = &ls
	}
	return st
}

// Shutdown waits for in-flight serialized writes, then closes the store.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.locks != nil {
		if err := s.locks.WaitForDrain(ctx); err != nil {
			slog.Warn("writes still active at shutdown", "active", s.locks.ActiveCount())
		}
	}
	return s.store.Close()
}
