package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/safebites/menuquery/internal/db"
	"github.com/safebites/menuquery/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "dish:"

// store is the consumer interface for catalog storage (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
}

// Repo is the dish catalog repository: the authoritative read side of the
// pipeline. The vector index is rebuilt from it, never the other way around.
type Repo struct {
	store store
}

// New creates a catalog repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get fetches one dish by id. A missing id maps to domain.ErrDishNotFound.
func (r *Repo) Get(ctx context.Context, dishID string) (domain.DishRecord, error) {
	data, err := r.store.Get(ctx, keyPrefix+dishID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.DishRecord{}, fmt.Errorf("dish %s: %w", dishID, domain.ErrDishNotFound)
		}
		return domain.DishRecord{}, fmt.Errorf("get dish %s: %w", dishID, err)
	}

	var dto dishDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return domain.DishRecord{}, fmt.Errorf("decode dish %s: %w", dishID, err)
	}
	return fromDTO(dto), nil
}

// Put stores a dish record.
func (r *Repo) Put(ctx context.Context, rec domain.DishRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("dish id is required")
	}
	data, err := json.Marshal(toDTO(rec))
	if err != nil {
		return fmt.Errorf("encode dish %s: %w", rec.ID, err)
	}
	if err := r.store.Set(ctx, keyPrefix+rec.ID, data); err != nil {
		return fmt.Errorf("put dish %s: %w", rec.ID, err)
	}
	return nil
}

// Delete removes a dish record.
func (r *Repo) Delete(ctx context.Context, dishID string) error {
	if err := r.store.Del(ctx, keyPrefix+dishID); err != nil {
		return fmt.Errorf("delete dish %s: %w", dishID, err)
	}
	return nil
}

// List returns all dishes for one restaurant. An empty restaurantID lists the
// whole catalog.
func (r *Repo) List(ctx context.Context, restaurantID string) ([]domain.DishRecord, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	if restaurantID == "" {
		return all, nil
	}
	out := all[:0]
	for _, rec := range all {
		if rec.RestaurantID == restaurantID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// All returns every dish in the catalog, used as the rebuild snapshot.
func (r *Repo) All(ctx context.Context) ([]domain.DishRecord, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan catalog: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := r.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	records := make([]domain.DishRecord, 0, len(values))
	for i, data := range values {
		if data == nil {
			continue // deleted between SCAN and MGET
		}
		var dto dishDTO
		if err := json.Unmarshal(data, &dto); err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		records = append(records, fromDTO(dto))
	}
	return records, nil
}
