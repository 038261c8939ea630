package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/safebites/menuquery/internal/db"
	"github.com/safebites/menuquery/internal/domain"
)

var (
	statesKeyPrefix  = domain.KeyPrefix + "session:states:"
	sessionKeyPrefix = domain.KeyPrefix + "session:active:"
)

// store is the consumer interface for history storage (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	RPush(ctx context.Context, key string, value []byte) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
}

// Repo is the session-scoped chat-state history store. Snapshots are
// append-only; appends for one session are serialized by a per-session lock
// so concurrent requests cannot interleave history entries.
type Repo struct {
	store store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a history repository.
func New(s store) *Repo {
	return &Repo{store: s, locks: make(map[string]*sync.Mutex)}
}

func (r *Repo) sessionLock(sessionID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[sessionID] = l
	}
	return l
}

// Append adds one finished chat-state snapshot to its session history.
func (r *Repo) Append(ctx context.Context, state domain.ChatState) error {
	if state.SessionID == "" {
		return fmt.Errorf("session id is required")
	}

	data, err := json.Marshal(toDTO(state))
	if err != nil {
		return fmt.Errorf("encode chat state: %w", err)
	}

	l := r.sessionLock(state.SessionID)
	l.Lock()
	defer l.Unlock()

	if err := r.store.RPush(ctx, statesKeyPrefix+state.SessionID, data); err != nil {
		return fmt.Errorf("append chat state: %w", err)
	}
	return nil
}

// Recent returns the last n snapshots for a session, oldest first.
// n <= 0 returns the whole history.
func (r *Repo) Recent(ctx context.Context, sessionID string, n int) ([]domain.ChatState, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	rows, err := r.store.LRange(ctx, statesKeyPrefix+sessionID, start, -1)
	if err != nil {
		return nil, fmt.Errorf("read session history: %w", err)
	}

	states := make([]domain.ChatState, 0, len(rows))
	for _, row := range rows {
		var dto stateDTO
		if err := json.Unmarshal(row, &dto); err != nil {
			return nil, fmt.Errorf("decode chat state: %w", err)
		}
		states = append(states, fromDTO(dto))
	}
	return states, nil
}

// RebuildContext reconstructs conversational context from the last n turns.
func (r *Repo) RebuildContext(ctx context.Context, sessionID string, n int) ([]domain.SessionContext, error) {
	states, err := r.Recent(ctx, sessionID, n)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SessionContext, len(states))
	for i, s := range states {
		out[i] = domain.SessionContext{
			Query:       s.Query,
			Intents:     s.Intents,
			MenuResults: s.MenuResults,
			InfoResults: s.InfoResults,
		}
	}
	return out, nil
}

// GetOrCreateSession returns the active session id for a (user, restaurant)
// pair, creating one when none exists. SETNX keeps concurrent first requests
// from minting two sessions for the same pair.
func (r *Repo) GetOrCreateSession(ctx context.Context, userID, restaurantID string) (string, error) {
	key := sessionKeyPrefix + userID + ":" + restaurantID

	data, err := r.store.Get(ctx, key)
	if err == nil {
		return string(data), nil
	}
	if !errors.Is(err, db.ErrKeyNotFound) {
		return "", fmt.Errorf("lookup session: %w", err)
	}

	sessionID := newSessionID()
	created, err := r.store.SetNX(ctx, key, []byte(sessionID))
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if !created {
		// Lost the race: read the winner.
		data, err := r.store.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("reread session: %w", err)
		}
		return string(data), nil
	}
	return sessionID, nil
}

// Length returns the number of snapshots stored for a session.
func (r *Repo) Length(ctx context.Context, sessionID string) (int64, error) {
	n, err := r.store.LLen(ctx, statesKeyPrefix+sessionID)
	if err != nil {
		return 0, fmt.Errorf("session length: %w", err)
	}
	return n, nil
}

func newSessionID() string {
	return "sess_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}
