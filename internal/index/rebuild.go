package index

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/domain"
)

// CatalogSnapshotter lists the full catalog as the rebuild input.
type CatalogSnapshotter interface {
	All(ctx context.Context) ([]domain.DishRecord, error)
}

// Rebuilder re-embeds the whole catalog and swaps the resulting index into a
// Handle. At most one rebuild runs at a time; a second trigger while one is
// running fails with domain.ErrRebuildInProgress.
type Rebuilder struct {
	catalog CatalogSnapshotter
	embed   domain.Embedder
	handle  *Handle
	logger  *zap.Logger
	running atomic.Bool
}

// NewRebuilder creates a rebuilder bound to a handle.
func NewRebuilder(catalog CatalogSnapshotter, embed domain.Embedder, handle *Handle, logger *zap.Logger) *Rebuilder {
	return &Rebuilder{catalog: catalog, embed: embed, handle: handle, logger: logger}
}

// Running reports whether a rebuild is currently in flight.
func (r *Rebuilder) Running() bool { return r.running.Load() }

// Trigger starts a rebuild as a background task bound to ctx and returns a
// completion channel that receives the rebuild's result exactly once.
func (r *Rebuilder) Trigger(ctx context.Context) (<-chan error, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, domain.ErrRebuildInProgress
	}

	done := make(chan error, 1)
	go func() {
		defer r.running.Store(false)
		done <- r.rebuild(ctx)
	}()
	return done, nil
}

// Rebuild runs a full rebuild synchronously.
func (r *Rebuilder) Rebuild(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return domain.ErrRebuildInProgress
	}
	defer r.running.Store(false)
	return r.rebuild(ctx)
}

func (r *Rebuilder) rebuild(ctx context.Context) error {
	start := time.Now()

	records, err := r.catalog.All(ctx)
	if err != nil {
		return fmt.Errorf("catalog snapshot: %w", err)
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rebuild cancelled: %w", err)
		}
		res, err := r.embed.Embed(ctx, rec.Document())
		if err != nil {
			return fmt.Errorf("embed dish %s: %w", rec.ID, err)
		}
		entries = append(entries, Entry{
			DishID:       rec.ID,
			RestaurantID: rec.RestaurantID,
			Vector:       res.Embedding,
		})
	}

	idx := New(entries)
	r.handle.Swap(idx)

	r.logger.Info("vector index rebuilt",
		zap.Int("dishes", idx.Len()),
		zap.Int("dimensions", idx.Dim()),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}
