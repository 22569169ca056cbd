// Package session implements the in-memory, TTL-expiring conversation
// store: a process-wide map from session id to message log, guarded by a
// striped per-session lock plus a short store-wide lock for map mutation.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/claudex-gateway/claudex-gateway/internal/models"
)

// ErrExpired is returned by Append when the session expired between the
// caller's read and this write.
var ErrExpired = errors.New("session: expired")

// ErrNotFound is returned by operations addressing a session id that does
// not exist.
var ErrNotFound = errors.New("session: not found")

// Session is a server-held, append-only conversation log addressed by a
// caller-chosen id.
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastAccessed time.Time
	ExpiresAt    time.Time
	Messages     []models.Message
}

// Summary is the list-view projection of a Session.
type Summary struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessed   time.Time `json:"last_accessed"`
	ExpiresAt      time.Time `json:"expires_at"`
	MessageCount   int       `json:"message_count"`
}

// Stats summarizes store-wide activity.
type Stats struct {
	Active          int           `json:"active"`
	TotalMessages   int           `json:"total_messages"`
	DefaultTTL      time.Duration `json:"default_ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

type entry struct {
	mu      sync.Mutex
	session *Session
}

// Store is the process-wide session map. Create one with NewStore and call
// Run in a background goroutine to start the sweeper.
type Store struct {
	mapMu           sync.Mutex
	entries         map[string]*entry
	defaultTTL      time.Duration
	cleanupInterval time.Duration
}

// NewStore creates an empty Store. defaultTTL and cleanupInterval fall
// back to 1h/5m (§4.3 defaults) when zero.
func NewStore(defaultTTL, cleanupInterval time.Duration) *Store {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	return &Store{
		entries:         make(map[string]*entry),
		defaultTTL:      defaultTTL,
		cleanupInterval: cleanupInterval,
	}
}

// getOrCreateEntry returns the entry for id, creating an empty one under
// the store lock if absent. The store-wide lock is never held while
// acquiring a session lock; GetOrCreate and the sweeper take it briefly
// while already holding one.
func (s *Store) getOrCreateEntry(id string) *entry {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		e = &entry{}
		s.entries[id] = e
	}
	return e
}

// GetOrCreate returns the session for id, creating a fresh one (or
// replacing an expired one) if necessary. Two concurrent calls for the
// same id create at most one record and return the same *Session.
func (s *Store) GetOrCreate(id string) *Session {
	var e *entry
	for {
		e = s.getOrCreateEntry(id)
		e.mu.Lock()
		// The sweeper or Delete may have removed e from the map while this
		// call waited for its lock; only the entry still in the map counts.
		s.mapMu.Lock()
		current := s.entries[id] == e
		s.mapMu.Unlock()
		if current {
			break
		}
		e.mu.Unlock()
	}
	defer e.mu.Unlock()

	now := time.Now()
	if e.session == nil || now.After(e.session.ExpiresAt) || now.Equal(e.session.ExpiresAt) {
		e.session = &Session{
			ID:           id,
			CreatedAt:    now,
			LastAccessed: now,
			ExpiresAt:    now.Add(s.defaultTTL),
		}
		return e.session
	}

	e.session.LastAccessed = now
	return e.session
}

// Append appends messages to the session under its lock and extends
// ExpiresAt. Returns ErrExpired if the session expired before this call
// could take its lock.
func (s *Store) Append(id string, messages []models.Message) error {
	s.mapMu.Lock()
	e, ok := s.entries[id]
	s.mapMu.Unlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrNotFound
	}

	now := time.Now()
	if now.After(e.session.ExpiresAt) {
		return ErrExpired
	}

	e.session.Messages = append(e.session.Messages, messages...)
	e.session.LastAccessed = now
	e.session.ExpiresAt = now.Add(s.defaultTTL)
	return nil
}

// Snapshot returns a copy of the session's message log without extending
// its TTL.
func (s *Store) Snapshot(id string) ([]models.Message, error) {
	s.mapMu.Lock()
	e, ok := s.entries[id]
	s.mapMu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, ErrNotFound
	}
	if time.Now().After(e.session.ExpiresAt) {
		return nil, ErrExpired
	}

	out := make([]models.Message, len(e.session.Messages))
	copy(out, e.session.Messages)
	return out, nil
}

// Get returns the session metadata (without defensively copying messages).
func (s *Store) Get(id string) (*Session, error) {
	s.mapMu.Lock()
	e, ok := s.entries[id]
	s.mapMu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil || time.Now().After(e.session.ExpiresAt) {
		return nil, ErrNotFound
	}

	cp := *e.session
	cp.Messages = append([]models.Message(nil), e.session.Messages...)
	return &cp, nil
}

// Delete removes a session synchronously, regardless of expiry.
func (s *Store) Delete(id string) bool {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

// List returns summaries of all live (non-expired) sessions ordered by
// LastAccessed descending.
func (s *Store) List() []Summary {
	s.mapMu.Lock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mapMu.Unlock()

	now := time.Now()
	summaries := make([]Summary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if e.session != nil && now.Before(e.session.ExpiresAt) {
			summaries = append(summaries, Summary{
				ID:           e.session.ID,
				CreatedAt:    e.session.CreatedAt,
				LastAccessed: e.session.LastAccessed,
				ExpiresAt:    e.session.ExpiresAt,
				MessageCount: len(e.session.Messages),
			})
		}
		e.mu.Unlock()
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastAccessed.After(summaries[j].LastAccessed)
	})
	return summaries
}

// Stats reports active session count, total buffered messages, and the
// sweeper configuration.
func (s *Store) Stats() Stats {
	list := s.List()
	total := 0
	for _, sum := range list {
		total += sum.MessageCount
	}
	return Stats{
		Active:          len(list),
		TotalMessages:   total,
		DefaultTTL:      s.defaultTTL,
		CleanupInterval: s.cleanupInterval,
	}
}

// sweepOnce removes every session that has expired as of now. It takes the
// store-wide lock only to snapshot the id list, then for each id acquires
// the session's lock and holds it across both the expiry re-check and the
// map deletion — the lock is never dropped between the two, so there is no
// window for a concurrent GetOrCreate to repopulate e.session after the
// sweeper has decided to delete but before it actually removes the entry.
// That held-lock span is what makes the sweeper and GetOrCreate/Append
// race-free per §4.3(ii), not merely re-checking expiry before deleting.
func (s *Store) sweepOnce() {
	s.mapMu.Lock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mapMu.Unlock()

	now := time.Now()
	for _, id := range ids {
		s.mapMu.Lock()
		e, ok := s.entries[id]
		s.mapMu.Unlock()
		if !ok {
			continue
		}

		e.mu.Lock()
		if e.session == nil || now.After(e.session.ExpiresAt) {
			// Still expired under e.mu: delete from the map before
			// releasing it, so no GetOrCreate can slip in a fresh
			// session on this entry between the check and the removal.
			s.mapMu.Lock()
			delete(s.entries, id)
			s.mapMu.Unlock()
		}
		e.mu.Unlock()
	}
}

// Run starts the sweeper loop; it blocks until stop is closed.
func (s *Store) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweepOnce()
		case <-stop:
			return
		}
	}
}
