package dishfilter

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/domain"
	"github.com/safebites/menuquery/internal/nlu"
)

// Service applies the deterministic dietary filter and the oracle-backed
// relevance validation to retrieved dishes.
type Service struct {
	oracle Oracle
	logger *zap.Logger
}

// New creates a filter/validation service.
func New(oracle Oracle, logger *zap.Logger) *Service {
	return &Service{oracle: oracle, logger: logger}
}

// Apply evaluates every dish against the filter and returns one validation
// result per dish, in input order. A structurally invalid filter returns
// domain.ErrInvalidFilter; an empty result list is not an error.
func (s *Service) Apply(
	filter domain.DishFilter, dishes []domain.DishRecord,
) ([]domain.DishValidationResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("apply filter: %w", err)
	}

	results := make([]domain.DishValidationResult, 0, len(dishes))
	for _, d := range dishes {
		results = append(results, validateDish(filter, d))
	}
	return results, nil
}

// Surviving returns the dishes whose validation result is include=true,
// preserving order.
func Surviving(
	dishes []domain.DishRecord, results []domain.DishValidationResult,
) []domain.DishRecord {
	byID := make(map[string]bool, len(results))
	for _, r := range results {
		byID[r.DishID] = r.Include
	}
	out := make([]domain.DishRecord, 0, len(dishes))
	for _, d := range dishes {
		if byID[d.ID] {
			out = append(out, d)
		}
	}
	return out
}

// ValidateRelevance asks the oracle which of the surviving dishes actually
// answer the sub-query; semantically close but contextually wrong matches
// get dropped here. The check fails open: on oracle or parse failure all
// dishes are kept, since they already passed deterministic filtering.
func (s *Service) ValidateRelevance(
	ctx context.Context, query string, dishes []domain.DishRecord,
) []domain.DishRecord {
	if len(dishes) == 0 {
		return dishes
	}

	raw, err := s.oracle.Complete(ctx, nlu.RelevancePrompt(query, dishes))
	if err != nil {
		s.logger.Warn("relevance check oracle call failed, keeping all dishes",
			zap.Error(err))
		return dishes
	}

	var resp nlu.RelevanceResponse
	if err := nlu.Decode(raw, &resp); err != nil {
		s.logger.Warn("relevance check response unparsable, keeping all dishes",
			zap.Error(err))
		return dishes
	}

	keep := make(map[string]struct{}, len(resp.Keep))
	for _, id := range resp.Keep {
		keep[id] = struct{}{}
	}

	out := make([]domain.DishRecord, 0, len(dishes))
	for _, d := range dishes {
		if _, ok := keep[d.ID]; ok {
			out = append(out, d)
		}
	}
	return out
}

func validateDish(f domain.DishFilter, d domain.DishRecord) domain.DishValidationResult {
	if reason := checkPrice(f.Price, d); reason != "" {
		return exclude(d, reason)
	}
	if reason := checkIngredients(f.Ingredients, d); reason != "" {
		return exclude(d, reason)
	}
	if reason := checkAllergens(f.Allergens, d); reason != "" {
		return exclude(d, reason)
	}
	if reason := checkNutrition(f.Nutrition, d); reason != "" {
		return exclude(d, reason)
	}
	return domain.DishValidationResult{DishID: d.ID, Include: true}
}

func exclude(d domain.DishRecord, reason string) domain.DishValidationResult {
	return domain.DishValidationResult{DishID: d.ID, Include: false, Reason: reason}
}

func checkPrice(r domain.PriceRange, d domain.DishRecord) string {
	if d.Price < r.Min {
		return fmt.Sprintf("price %.2f below minimum %.2f", d.Price, r.Min)
	}
	if r.Max > 0 && d.Price > r.Max {
		return fmt.Sprintf("price %.2f above maximum %.2f", d.Price, r.Max)
	}
	return ""
}

func checkIngredients(f domain.IngredientFilter, d domain.DishRecord) string {
	for _, want := range f.Include {
		if !hasIngredient(d.Ingredients, want) {
			return fmt.Sprintf("missing required ingredient %q", want)
		}
	}
	for _, banned := range f.Exclude {
		if hasIngredient(d.Ingredients, banned) {
			return fmt.Sprintf("contains excluded ingredient %q", banned)
		}
	}
	return ""
}

// hasIngredient matches case-insensitively by substring, so "cheese" matches
// "parmesan cheese".
func hasIngredient(ingredients []string, target string) bool {
	target = strings.ToLower(target)
	for _, ing := range ingredients {
		if strings.Contains(strings.ToLower(ing), target) {
			return true
		}
	}
	return false
}

func checkAllergens(f domain.AllergenFilter, d domain.DishRecord) string {
	for _, banned := range f.Exclude {
		for _, name := range d.AllergenNames() {
			if strings.EqualFold(name, banned) {
				return fmt.Sprintf("contains excluded allergen %q", banned)
			}
		}
	}
	return ""
}

// checkNutrition enforces bounds only on facts the dish actually reports;
// a missing fact never violates a bound.
func checkNutrition(n domain.NutritionBounds, d domain.DishRecord) string {
	if n.MaxCalories != nil {
		if v, ok := d.NutritionFacts["calories"]; ok && v > *n.MaxCalories {
			return fmt.Sprintf("calories %.1f above maximum %.1f", v, *n.MaxCalories)
		}
	}
	if n.MinProtein != nil {
		if v, ok := d.NutritionFacts["protein"]; ok && v < *n.MinProtein {
			return fmt.Sprintf("protein %.1f below minimum %.1f", v, *n.MinProtein)
		}
	}
	if n.MaxFat != nil {
		if v, ok := d.NutritionFacts["fat"]; ok && v > *n.MaxFat {
			return fmt.Sprintf("fat %.1f above maximum %.1f", v, *n.MaxFat)
		}
	}
	if n.MaxCarbs != nil {
		if v, ok := d.NutritionFacts["carbs"]; ok && v > *n.MaxCarbs {
			return fmt.Sprintf("carbs %.1f above maximum %.1f", v, *n.MaxCarbs)
		}
	}
	return ""
}
