package domain

import "fmt"

// PriceRange bounds dish prices. Max <= 0 means unbounded.
type PriceRange struct {
	Min float64
	Max float64
}

// IngredientFilter requires every Include entry and rejects any Exclude entry.
type IngredientFilter struct {
	Include []string
	Exclude []string
}

// AllergenFilter rejects dishes carrying any of the excluded allergens.
type AllergenFilter struct {
	Exclude []string
}

// NutritionBounds constrains nutrition facts. Nil pointers mean no bound; a
// dish missing the fact does not violate the bound.
type NutritionBounds struct {
	MaxCalories *float64
	MinProtein  *float64
	MaxFat      *float64
	MaxCarbs    *float64
}

// DishFilter is the deterministic dietary constraint set applied after
// retrieval, supplied per query or user context.
type DishFilter struct {
	Price       PriceRange
	Ingredients IngredientFilter
	Allergens   AllergenFilter
	Nutrition   NutritionBounds
}

// IsZero reports whether no constraint is active.
func (f DishFilter) IsZero() bool {
	return f.Price.Min == 0 && f.Price.Max == 0 &&
		len(f.Ingredients.Include) == 0 && len(f.Ingredients.Exclude) == 0 &&
		len(f.Allergens.Exclude) == 0 &&
		f.Nutrition.MaxCalories == nil && f.Nutrition.MinProtein == nil &&
		f.Nutrition.MaxFat == nil && f.Nutrition.MaxCarbs == nil
}

// Validate rejects structurally broken filter configurations. This is the
// one filter failure surfaced to the caller, distinct from "no results".
func (f DishFilter) Validate() error {
	if f.Price.Min < 0 {
		return fmt.Errorf("%w: price.min must not be negative", ErrInvalidFilter)
	}
	if f.Price.Max > 0 && f.Price.Max < f.Price.Min {
		return fmt.Errorf("%w: price.max %.2f below price.min %.2f", ErrInvalidFilter, f.Price.Max, f.Price.Min)
	}
	for name, v := range map[string]*float64{
		"nutrition.max_calories": f.Nutrition.MaxCalories,
		"nutrition.min_protein":  f.Nutrition.MinProtein,
		"nutrition.max_fat":      f.Nutrition.MaxFat,
		"nutrition.max_carbs":    f.Nutrition.MaxCarbs,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidFilter, name)
		}
	}
	return nil
}

// DishValidationResult is the per-dish outcome of the deterministic filter.
type DishValidationResult struct {
	DishID  string
	Include bool
	Reason  string
}
