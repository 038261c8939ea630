package history

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/safebites/menuquery/internal/db"
	"github.com/safebites/menuquery/internal/domain"
)

// mockStore is an in-memory stand-in for the Redis store.
type mockStore struct {
	mu    sync.Mutex
	kv    map[string][]byte
	lists map[string][][]byte
}

func newMockStore() *mockStore {
	return &mockStore{kv: make(map[string][]byte), lists: make(map[string][][]byte)}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) SetNX(_ context.Context, key string, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.kv[key]; ok {
		return false, nil
	}
	m.kv[key] = value
	return true, nil
}

func (m *mockStore) RPush(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append(m.lists[key], value)
	return nil
}

func (m *mockStore) LRange(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.lists[key]
	n := int64(len(list))
	if start < 0 {
		start += n
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop += n
	}
	if start > stop || start >= n {
		return nil, nil
	}
	if stop >= n {
		stop = n - 1
	}
	return list[start : stop+1], nil
}

func (m *mockStore) LLen(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.lists[key])), nil
}

func sampleState(sessionID, query string) domain.ChatState {
	return domain.ChatState{
		ID:           "cs_1",
		UserID:       "u_1",
		SessionID:    sessionID,
		RestaurantID: "rest_1",
		Query:        query,
		Intents:      []domain.Intent{{Type: domain.IntentMenuSearch, Query: query}},
		MenuResults: map[string][]domain.DishResult{
			query: {{DishID: "dish_2", Name: "Penne Arrabbiata", Price: domain.Price{Value: 11, Currency: "USD"}}},
		},
		Status:    domain.StatusSuccess,
		Timestamp: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestAppendRecent_Roundtrip(t *testing.T) {
	repo := New(newMockStore())
	ctx := context.Background()

	for _, q := range []string{"first", "second", "third"} {
		if err := repo.Append(ctx, sampleState("sess_a", q)); err != nil {
			t.Fatalf("append %q: %v", q, err)
		}
	}

	got, err := repo.Recent(ctx, "sess_a", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("recent len = %d, want 2", len(got))
	}
	if got[0].Query != "second" || got[1].Query != "third" {
		t.Errorf("recent queries = %q, %q", got[0].Query, got[1].Query)
	}
	if got[1].MenuResults["third"][0].Name != "Penne Arrabbiata" {
		t.Errorf("menu results lost in roundtrip: %+v", got[1].MenuResults)
	}
}

func TestAppend_RequiresSession(t *testing.T) {
	repo := New(newMockStore())
	if err := repo.Append(context.Background(), domain.ChatState{}); err == nil {
		t.Fatal("expected error for missing session id")
	}
}

func TestRebuildContext(t *testing.T) {
	repo := New(newMockStore())
	ctx := context.Background()

	if err := repo.Append(ctx, sampleState("sess_b", "pasta")); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := repo.RebuildContext(ctx, "sess_b", 5)
	if err != nil {
		t.Fatalf("rebuild context: %v", err)
	}
	if len(got) != 1 || got[0].Query != "pasta" {
		t.Fatalf("context = %+v", got)
	}
	if len(got[0].Intents) != 1 {
		t.Errorf("intents = %+v", got[0].Intents)
	}
}

func TestGetOrCreateSession_Stable(t *testing.T) {
	repo := New(newMockStore())
	ctx := context.Background()

	first, err := repo.GetOrCreateSession(ctx, "u_1", "rest_1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(first, "sess_") {
		t.Errorf("session id = %q, want sess_ prefix", first)
	}

	second, err := repo.GetOrCreateSession(ctx, "u_1", "rest_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if second != first {
		t.Errorf("second call returned %q, want %q", second, first)
	}

	other, err := repo.GetOrCreateSession(ctx, "u_1", "rest_2")
	if err != nil {
		t.Fatalf("other restaurant: %v", err)
	}
	if other == first {
		t.Error("different restaurant must get a different session")
	}
}

func TestAppend_ConcurrentSameSession(t *testing.T) {
	ms := newMockStore()
	repo := New(ms)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.Append(ctx, sampleState("sess_c", "q"))
		}()
	}
	wg.Wait()

	n, err := repo.Length(ctx, "sess_c")
	if err != nil {
		t.Fatalf("length: %v", err)
	}
	if n != 20 {
		t.Errorf("history length = %d, want 20", n)
	}
}
