package index

import (
	"context"
	"sync/atomic"

	"github.com/safebites/menuquery/internal/domain"
)

// Handle is the shared, atomically swappable reference to the current index.
// Rebuilds construct a full replacement off to the side and swap it in with
// one pointer store; request-serving reads are never blocked.
type Handle struct {
	ptr atomic.Pointer[Index]
}

// NewHandle creates an empty handle; Ready is false until the first Swap.
func NewHandle() *Handle {
	return &Handle{}
}

// Swap installs a new index and returns the previous one (nil on first swap).
func (h *Handle) Swap(idx *Index) *Index {
	return h.ptr.Swap(idx)
}

// Ready reports whether an index has been installed.
func (h *Handle) Ready() bool {
	return h.ptr.Load() != nil
}

// Len returns the size of the current index, 0 when not ready.
func (h *Handle) Len() int {
	if idx := h.ptr.Load(); idx != nil {
		return idx.Len()
	}
	return 0
}

// Search queries the current index. Before the first build it fails with
// domain.ErrIndexNotReady, which the orchestrator treats as a stage failure
// for the affected sub-query only.
func (h *Handle) Search(
	_ context.Context, vector []float32, restaurantID string, topK int, minScore float64,
) ([]domain.IndexHit, error) {
	idx := h.ptr.Load()
	if idx == nil {
		return nil, domain.ErrIndexNotReady
	}
	return idx.Search(vector, restaurantID, topK, minScore), nil
}
