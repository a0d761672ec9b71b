// Package journal records wizard lifecycle events. With the nats store they
// are appended to the farmwiz_events JetStream stream; otherwise they are
// kept in memory.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scibee/farmwiz/internal/logger"
	"github.com/scibee/farmwiz/internal/session"
	"github.com/scibee/farmwiz/internal/wizard"
)

// Entry is one journaled lifecycle event.
type Entry struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"time"`
	Flow   string    `json:"flow"`
	Owner  string    `json:"owner"`
	Kind   string    `json:"kind"` // started, advanced, submitted, failed, reset
	Step   string    `json:"step,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// Journal appends and reads lifecycle entries.
type Journal interface {
	Append(ctx context.Context, e Entry) error
	// Recent returns up to n entries, oldest first.
	Recent(ctx context.Context, n int) ([]Entry, error)
}

// stamp fills in the id and time of e when unset.
func stamp(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	return e
}

// Notifier adapts j to the wizard notice callback. Journal failures are
// logged and never reach the wizard.
func Notifier(j Journal) func(context.Context, wizard.Notice) {
	log := logger.With("journal")
	return func(ctx context.Context, n wizard.Notice) {
		err := j.Append(ctx, Entry{
			Flow:   n.Flow,
			Owner:  session.Owner(n.Key),
			Kind:   string(n.Kind),
			Step:   n.Step,
			Detail: n.Detail,
		})
		if err != nil {
			log.Warn("Failed to journal %s of %s: %v", n.Kind, n.Flow, err)
		}
	}
}

// Memory keeps the most recent entries in process memory.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
}

// NewMemory keeps at most limit entries; zero or less means 1000.
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = 1000
	}
	return &Memory{limit: limit}
}

func (m *Memory) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, stamp(e))
	if over := len(m.entries) - m.limit; over > 0 {
		m.entries = append([]Entry(nil), m.entries[over:]...)
	}
	return nil
}

func (m *Memory) Recent(_ context.Context, n int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || n > len(m.entries) {
		n = len(m.entries)
	}
	return append([]Entry(nil), m.entries[len(m.entries)-n:]...), nil
}
