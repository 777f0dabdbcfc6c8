// Package notifystore holds the client-side notification ledger: an ordered,
// newest-first, read/unread-accounted collection fed by the realtime channel
// and mutated by user actions. One store instance is constructed by the
// application root and passed to whatever reads or mutates it.
package notifystore

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/edielopx/FreelanceHub-sub001/pkg/channel"
)

// DefaultMaxEntries bounds the ledger; the oldest entries are evicted beyond it.
const DefaultMaxEntries = 200

// Notification is one entry in the ledger.
type Notification struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Title      string          `json:"title"`
	Body       string          `json:"body"`
	SenderID   int64           `json:"sender_id,omitempty"`
	ReceiverID int64           `json:"receiver_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Read       bool            `json:"read"`
}

// Config configures a Store.
type Config struct {
	// MaxEntries caps the ledger; zero means DefaultMaxEntries.
	MaxEntries int

	// OnToast fires exactly once per ingested notification, for transient
	// presentation. Correctness does not depend on it.
	OnToast func(Notification)

	// OnChange fires after every mutation so observers can re-render.
	OnChange func()
}

// Store is the notification ledger. All mutators are safe for concurrent
// use, though in practice the channel session and the UI drive it from a
// single cooperative loop.
type Store struct {
	cfg Config

	mu         sync.Mutex
	items      []*Notification // oldest first; presented newest-first
	seq        uint64
	lastMillis int64
	panelOpen  bool
}

func New(cfg Config) *Store {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	return &Store{cfg: cfg}
}

// HandleEvent ingests a decoded channel event. Implements channel.Handler.
func (s *Store) HandleEvent(e channel.Event) {
	occurredAt := e.Timestamp
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	s.Ingest(Notification{
		Kind:       e.Type,
		Title:      e.Title,
		Body:       e.Message,
		SenderID:   e.SenderID,
		ReceiverID: e.ReceiverID,
		OccurredAt: occurredAt,
		Payload:    e.Data,
	})
}

// Ingest adds n as the newest entry, assigning a fresh unique id, and
// returns that id. Entries beyond the cap are evicted oldest-first.
func (s *Store) Ingest(n Notification) string {
	s.mu.Lock()
	n.ID = s.nextIDLocked()
	n.Read = false
	item := n
	s.items = append(s.items, &item)
	if excess := len(s.items) - s.cfg.MaxEntries; excess > 0 {
		s.items = s.items[excess:]
	}
	toast := s.cfg.OnToast
	s.mu.Unlock()

	if toast != nil {
		toast(item)
	}
	s.changed()
	return item.ID
}

// MarkAsRead flips the matching entry to read. Unknown ids are a no-op, so
// double invocation from a UI click race is harmless. Reading is one-way.
func (s *Store) MarkAsRead(id string) {
	s.mu.Lock()
	mutated := false
	for _, n := range s.items {
		if n.ID == id {
			mutated = !n.Read
			n.Read = true
			break
		}
	}
	s.mu.Unlock()
	if mutated {
		s.changed()
	}
}

// MarkAllAsRead flips every entry to read.
func (s *Store) MarkAllAsRead() {
	s.mu.Lock()
	mutated := false
	for _, n := range s.items {
		if !n.Read {
			n.Read = true
			mutated = true
		}
	}
	s.mu.Unlock()
	if mutated {
		s.changed()
	}
}

// Delete removes the matching entry. Unknown ids are a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	mutated := false
	for i, n := range s.items {
		if n.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			mutated = true
			break
		}
	}
	s.mu.Unlock()
	if mutated {
		s.changed()
	}
}

// Clear empties the ledger.
func (s *Store) Clear() {
	s.mu.Lock()
	mutated := len(s.items) > 0
	s.items = nil
	s.mu.Unlock()
	if mutated {
		s.changed()
	}
}

// UnreadCount is always a live recomputation over the entries, never a
// separately maintained counter that could drift.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Notifications returns a newest-first snapshot for presentation.
func (s *Store) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		out = append(out, *s.items[i])
	}
	return out
}

// SetPanelOpen records the notification panel's visibility. Opening marks
// nothing read (the open panel is a passive view); closing after an open
// marks everything read. The mark-on-close ordering is a deliberate
// contract, not an accident.
func (s *Store) SetPanelOpen(open bool) {
	s.mu.Lock()
	wasOpen := s.panelOpen
	s.panelOpen = open
	s.mu.Unlock()

	if wasOpen && !open {
		s.MarkAllAsRead()
	}
}

// nextIDLocked produces ids that are unique per insertion and monotonically
// increasing: wall-clock milliseconds (never rewound) plus a sequence.
func (s *Store) nextIDLocked() string {
	ms := time.Now().UnixMilli()
	if ms < s.lastMillis {
		ms = s.lastMillis
	}
	s.lastMillis = ms
	s.seq++
	return strconv.FormatInt(ms, 10) + "-" + strconv.FormatUint(s.seq, 10)
}

func (s *Store) changed() {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange()
	}
}
