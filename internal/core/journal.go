package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JournalAction names the kind of transaction recorded.
type JournalAction string

const (
	ActionSale           JournalAction = "sale"
	ActionRestock        JournalAction = "restock"
	ActionEntryAdd       JournalAction = "entry_add"
	ActionEntryUpdate    JournalAction = "entry_update"
	ActionEntryMerge     JournalAction = "entry_merge"
	ActionEntryDelete    JournalAction = "entry_delete"
	ActionDeleteAll      JournalAction = "delete_all"
	ActionCategoryDelete JournalAction = "category_delete"
	ActionReload         JournalAction = "reload"
)

// JournalSeverity represents how destructive an action is.
type JournalSeverity string

const (
	SeverityLow      JournalSeverity = "low"
	SeverityMedium   JournalSeverity = "medium"
	SeverityHigh     JournalSeverity = "high"
	SeverityCritical JournalSeverity = "critical"
)

// JournalEntry is one recorded transaction, accepted or rejected.
type JournalEntry struct {
	ID        string          `json:"id"`
	Action    JournalAction   `json:"action"`
	Severity  JournalSeverity `json:"severity"`
	Category  string          `json:"category,omitempty"`
	ItemID    string          `json:"itemId,omitempty"`
	Quantity  int             `json:"quantity,omitempty"`
	OldValue  string          `json:"oldValue,omitempty"`
	NewValue  string          `json:"newValue,omitempty"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Code      string          `json:"code,omitempty"`
	IPAddress string          `json:"ipAddress,omitempty"`
	UserAgent string          `json:"userAgent,omitempty"`
	Duration  time.Duration   `json:"durationNs"`
	CreatedAt time.Time       `json:"createdAt"`
}

func determineSeverity(action JournalAction) JournalSeverity {
	switch action {
	case ActionReload:
		return SeverityLow
	case ActionEntryDelete:
		return SeverityHigh
	case ActionDeleteAll, ActionCategoryDelete:
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// Journal keeps the most recent transactions in a fixed-size ring.
// It is process-local and lost on restart.
type Journal struct {
	mu      sync.RWMutex
	entries []JournalEntry
	next    int
	full    bool
}

// NewJournal creates a journal holding up to size entries. A size of zero
// disables recording.
func NewJournal(size int) *Journal {
	if size < 0 {
		size = 0
	}
	return &Journal{entries: make([]JournalEntry, size)}
}

// Origin is the client a transaction came from, as recorded in the journal.
type Origin struct {
	IPAddress string
	UserAgent string
}

type originKey struct{}

// WithOrigin attaches the requesting client to ctx.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// OriginFrom returns the client attached by WithOrigin, or a zero Origin.
func OriginFrom(ctx context.Context) Origin {
	o, _ := ctx.Value(originKey{}).(Origin)
	return o
}

// Record stamps e with an ID, severity, time and the request's client
// details, stores it and returns the stamped copy.
func (j *Journal) Record(ctx context.Context, e JournalEntry) JournalEntry {
	e.ID = uuid.NewString()
	e.Severity = determineSeverity(e.Action)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	origin := OriginFrom(ctx)
	if e.IPAddress == "" {
		e.IPAddress = origin.IPAddress
	}
	if e.UserAgent == "" {
		e.UserAgent = origin.UserAgent
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.entries) == 0 {
		return e
	}
	j.entries[j.next] = e
	j.next = (j.next + 1) % len(j.entries)
	if j.next == 0 {
		j.full = true
	}
	return e
}

// JournalFilter narrows Recent. Zero values match everything.
type JournalFilter struct {
	Category string
	Action   JournalAction
	Limit    int
}

// DefaultJournalLimit caps Recent when no limit is given.
const DefaultJournalLimit = 50

// Recent returns matching entries, newest first.
func (j *Journal) Recent(filter JournalFilter) []JournalEntry {
	if filter.Limit <= 0 {
		filter.Limit = DefaultJournalLimit
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	n := j.next
	if j.full {
		n = len(j.entries)
	}

	out := make([]JournalEntry, 0, min(n, filter.Limit))
	for i := 0; i < n && len(out) < filter.Limit; i++ {
		idx := (j.next - 1 - i + len(j.entries)) % len(j.entries)
		e := j.entries[idx]
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len returns the number of stored entries.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.full {
		return len(j.entries)
	}
	return j.next
}
