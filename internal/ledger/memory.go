package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/trendpress/trendpress/internal/plan"
)

type record struct {
	processedAt time.Time
	expiresAt   time.Time
}

// MemoryLedger is an in-process ledger used by tests and single-node
// runs without redis. Expired records are treated as absent; lookups
// need no purge pass.
type MemoryLedger struct {
	mu      sync.RWMutex
	window  time.Duration
	records map[string]record
}

var _ plan.TopicLedger = (*MemoryLedger)(nil)

func NewMemoryLedger(window time.Duration) *MemoryLedger {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryLedger{window: window, records: make(map[string]record)}
}

func (l *MemoryLedger) IsRecentlyProcessed(ctx context.Context, title string) (bool, error) {
	key := plan.NormalizeTitle(title)
	if key == "" {
		return false, nil
	}
	l.mu.RLock()
	rec, ok := l.records[key]
	l.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return time.Now().Before(rec.expiresAt), nil
}

func (l *MemoryLedger) MarkProcessed(ctx context.Context, title string, now time.Time) error {
	key := plan.NormalizeTitle(title)
	if key == "" {
		return nil
	}
	l.mu.Lock()
	l.records[key] = record{processedAt: now, expiresAt: now.Add(l.window)}
	l.mu.Unlock()
	return nil
}
