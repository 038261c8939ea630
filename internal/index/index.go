// Package index holds the in-process vector index over dish embeddings.
// An Index is immutable after construction; serving always goes through a
// Handle whose pointer is swapped atomically on rebuild, so readers see
// either the old or the new index, never a partial one.
package index

import (
	"sort"
	"time"

	"github.com/safebites/menuquery/internal/domain"
)

// Entry is one indexed dish embedding with its partition metadata.
type Entry struct {
	DishID       string
	RestaurantID string
	Slot         int
	Vector       []float32
}

// Index is a partitioned nearest-neighbor structure: one partition per
// restaurant plus a global view across all of them.
type Index struct {
	entries    []Entry
	partitions map[string][]int // restaurant id -> entry slots
	dim        int
	builtAt    time.Time
}

// New builds an index from entries. Vectors are unit-normalized up front so
// search reduces to a dot product. Entries with empty vectors are skipped.
func New(entries []Entry) *Index {
	idx := &Index{
		partitions: make(map[string][]int),
		builtAt:    time.Now().UTC(),
	}
	for _, e := range entries {
		if len(e.Vector) == 0 {
			continue
		}
		if idx.dim == 0 {
			idx.dim = len(e.Vector)
		}
		if len(e.Vector) != idx.dim {
			continue
		}
		e.Slot = len(idx.entries)
		e.Vector = domain.Normalize(e.Vector)
		idx.entries = append(idx.entries, e)
		idx.partitions[e.RestaurantID] = append(idx.partitions[e.RestaurantID], e.Slot)
	}
	return idx
}

// Len returns the number of indexed dishes.
func (idx *Index) Len() int { return len(idx.entries) }

// Dim returns the embedding dimension, 0 for an empty index.
func (idx *Index) Dim() int { return idx.dim }

// BuiltAt returns when the index was constructed.
func (idx *Index) BuiltAt() time.Time { return idx.builtAt }

// Search returns up to topK hits with cosine similarity >= minScore, sorted
// by score descending. restaurantID scopes the search to one partition; empty
// searches globally. An unknown partition yields no hits, not an error.
func (idx *Index) Search(vector []float32, restaurantID string, topK int, minScore float64) []domain.IndexHit {
	if len(vector) != idx.dim || idx.dim == 0 || topK <= 0 {
		return nil
	}
	query := domain.Normalize(vector)

	var slots []int
	if restaurantID == "" {
		slots = make([]int, len(idx.entries))
		for i := range idx.entries {
			slots[i] = i
		}
	} else {
		slots = idx.partitions[restaurantID]
	}

	hits := make([]domain.IndexHit, 0, len(slots))
	for _, slot := range slots {
		e := idx.entries[slot]
		score := domain.Dot(query, e.Vector)
		if score < minScore {
			continue
		}
		hits = append(hits, domain.IndexHit{
			DishID:       e.DishID,
			RestaurantID: e.RestaurantID,
			Score:        score,
			Vector:       e.Vector,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}
