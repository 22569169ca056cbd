package session

import (
	"sync"
	"testing"
	"time"

	"github.com/claudex-gateway/claudex-gateway/internal/models"
)

func msg(text string) models.Message {
	return models.Message{Role: "user", Content: text}
}

func TestStore_AppendAccumulatesInOrder(t *testing.T) {
	s := NewStore(time.Hour, time.Minute)
	s.GetOrCreate("sA")

	if err := s.Append("sA", []models.Message{msg("one")}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append("sA", []models.Message{msg("two")}); err != nil {
		t.Fatalf("append: %v", err)
	}

	snap, err := s.Snapshot("sA")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap) != 2 || snap[0].TextContent() != "one" || snap[1].TextContent() != "two" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestStore_ExpiredSessionIsReplacedEmpty(t *testing.T) {
	s := NewStore(10*time.Millisecond, time.Minute)
	first := s.GetOrCreate("sA")
	s.Append("sA", []models.Message{msg("Alice")})

	time.Sleep(20 * time.Millisecond)

	second := s.GetOrCreate("sA")
	if len(second.Messages) != 0 {
		t.Errorf("expected fresh empty session, got %+v", second.Messages)
	}
	if !second.CreatedAt.After(first.ExpiresAt) && !second.CreatedAt.Equal(first.ExpiresAt) {
		t.Errorf("new session created_at %v should be >= old expires_at %v", second.CreatedAt, first.ExpiresAt)
	}
}

func TestStore_AppendAfterExpiryFails(t *testing.T) {
	s := NewStore(10*time.Millisecond, time.Minute)
	s.GetOrCreate("sA")
	time.Sleep(20 * time.Millisecond)

	err := s.Append("sA", []models.Message{msg("late")})
	if err != ErrExpired {
		t.Errorf("err = %v, want ErrExpired", err)
	}
}

func TestStore_GetOrCreateIdempotentUnderConcurrency(t *testing.T) {
	s := NewStore(time.Hour, time.Minute)

	var wg sync.WaitGroup
	results := make([]*Session, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.GetOrCreate("shared")
		}(i)
	}
	wg.Wait()

	first := results[0]
	for _, r := range results {
		if r.ID != first.ID || r.CreatedAt != first.CreatedAt {
			t.Fatalf("expected identical session record across concurrent creates")
		}
	}

	stats := s.Stats()
	if stats.Active != 1 {
		t.Errorf("active = %d, want 1", stats.Active)
	}
}

func TestStore_ConcurrentAppendsKeepEveryMessage(t *testing.T) {
	s := NewStore(time.Hour, time.Minute)
	s.GetOrCreate("sA")

	var wg sync.WaitGroup
	callers := 5
	perCaller := 10
	for c := 0; c < callers; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			for i := 0; i < perCaller; i++ {
				s.Append("sA", []models.Message{msg("x")})
			}
		}(c)
	}
	wg.Wait()

	snap, err := s.Snapshot("sA")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap) != callers*perCaller {
		t.Fatalf("len = %d, want %d", len(snap), callers*perCaller)
	}
}

func TestStore_DeleteRemovesSynchronously(t *testing.T) {
	s := NewStore(time.Hour, time.Minute)
	s.GetOrCreate("sA")

	if !s.Delete("sA") {
		t.Fatal("expected delete to report existing session")
	}
	if _, err := s.Snapshot("sA"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_SweepRemovesExpiredOnly(t *testing.T) {
	s := NewStore(50*time.Millisecond, time.Minute)
	s.GetOrCreate("expires-soon")

	time.Sleep(60 * time.Millisecond)
	s.GetOrCreate("lives")
	s.sweepOnce()

	s.mapMu.Lock()
	_, expiredKept := s.entries["expires-soon"]
	_, liveKept := s.entries["lives"]
	s.mapMu.Unlock()

	if expiredKept {
		t.Errorf("expired session still in the store after sweep")
	}
	if !liveKept {
		t.Errorf("live session removed by sweep")
	}
}

func TestStore_ListOrderedByLastAccessedDescending(t *testing.T) {
	s := NewStore(time.Hour, time.Minute)
	s.GetOrCreate("a")
	time.Sleep(2 * time.Millisecond)
	s.GetOrCreate("b")
	time.Sleep(2 * time.Millisecond)
	s.GetOrCreate("a") // touches a, making it most recent

	list := s.List()
	if len(list) != 2 || list[0].ID != "a" {
		t.Fatalf("list = %+v, want a first", list)
	}
}
