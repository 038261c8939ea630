package domain

// Intent types produced by query decomposition.
const (
	IntentMenuSearch = "menu_search"
	IntentDishInfo   = "dish_info"
	IntentIrrelevant = "irrelevant"
)

// Intent is one self-contained sub-query tagged with its bucket.
type Intent struct {
	Type  string
	Query string
}

// QueryIntent is the positive/negative expansion of one sub-query. Positive
// terms are semantically broadened; negative terms stay narrow (direct
// variants of the excluded item only, never parent categories).
type QueryIntent struct {
	Positive []string
	Negative []string
}

// Decomposition groups the decomposed sub-queries by bucket, preserving the
// order the decomposer produced them in.
type Decomposition struct {
	MenuSearch []string
	DishInfo   []string
	Irrelevant []string
}

// Intents flattens the decomposition into ordered tagged intents:
// menu_search first, then dish_info, then irrelevant.
func (d Decomposition) Intents() []Intent {
	out := make([]Intent, 0, len(d.MenuSearch)+len(d.DishInfo)+len(d.Irrelevant))
	for _, q := range d.MenuSearch {
		out = append(out, Intent{Type: IntentMenuSearch, Query: q})
	}
	for _, q := range d.DishInfo {
		out = append(out, Intent{Type: IntentDishInfo, Query: q})
	}
	for _, q := range d.Irrelevant {
		out = append(out, Intent{Type: IntentIrrelevant, Query: q})
	}
	return out
}

// Parts returns the bucket-name -> sub-query map stored on the chat state.
func (d Decomposition) Parts() map[string][]string {
	return map[string][]string{
		IntentMenuSearch: d.MenuSearch,
		IntentDishInfo:   d.DishInfo,
		IntentIrrelevant: d.Irrelevant,
	}
}

// Empty reports whether decomposition produced no sub-queries at all.
func (d Decomposition) Empty() bool {
	return len(d.MenuSearch) == 0 && len(d.DishInfo) == 0 && len(d.Irrelevant) == 0
}
