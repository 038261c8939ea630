package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Allergen is one allergen attached to a dish. Confidence and Why are set
// when the allergen was inferred from ingredients rather than declared.
type Allergen struct {
	Allergen   string
	Confidence float64
	Why        string
}

// DishRecord is the authoritative catalog entity. The catalog owns it; the
// pipeline only reads it.
type DishRecord struct {
	ID             string
	RestaurantID   string
	Name           string
	Description    string
	Price          float64
	Ingredients    []string
	ServingSize    string
	Availability   bool
	Allergens      []Allergen
	NutritionFacts map[string]float64
}

// AllergenNames returns the plain allergen names, inferred or declared.
func (d DishRecord) AllergenNames() []string {
	names := make([]string, 0, len(d.Allergens))
	for _, a := range d.Allergens {
		names = append(names, a.Allergen)
	}
	return names
}

// Document renders the dish as the flat text that gets embedded into the
// vector index. The field order is stable so re-embedding an unchanged dish
// yields the same vector.
func (d DishRecord) Document() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dish Name: %s\n", d.Name)
	fmt.Fprintf(&b, "Description: %s\n", d.Description)
	fmt.Fprintf(&b, "Price: %.2f\n", d.Price)
	fmt.Fprintf(&b, "Ingredients: %s\n", strings.Join(d.Ingredients, ", "))
	fmt.Fprintf(&b, "Serving Size: %s\n", d.ServingSize)
	fmt.Fprintf(&b, "Availability: %t\n", d.Availability)
	fmt.Fprintf(&b, "Allergens: %s\n", strings.Join(d.AllergenNames(), ", "))
	fmt.Fprintf(&b, "Nutrition: %s\n", formatNutrition(d.NutritionFacts))
	return b.String()
}

func formatNutrition(facts map[string]float64) string {
	if len(facts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%.1f", k, facts[k]))
	}
	return strings.Join(parts, ", ")
}

// DishHit is a single retrieval hit: the catalog record, the index similarity
// score, and the raw embedding the re-ranker needs. CentroidSimilarity is
// zero until the re-ranker sets it.
type DishHit struct {
	Dish               DishRecord
	Score              float64
	Embedding          []float32
	CentroidSimilarity float64
}

// IndexHit is a raw vector index hit before catalog resolution.
type IndexHit struct {
	DishID       string
	RestaurantID string
	Score        float64
	Vector       []float32
}
