package catalog

import "github.com/safebites/menuquery/internal/domain"

// dishDTO is the stored JSON shape of a dish record. Field names follow the
// upstream catalog documents (inferred_allergens, nutrition_facts).
type dishDTO struct {
	ID             string             `json:"_id"`
	RestaurantID   string             `json:"restaurant_id"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	Price          float64            `json:"price"`
	Ingredients    []string           `json:"ingredients"`
	ServingSize    string             `json:"serving_size"`
	Availability   bool               `json:"availability"`
	Allergens      []allergenDTO      `json:"inferred_allergens"`
	NutritionFacts map[string]float64 `json:"nutrition_facts"`
}

type allergenDTO struct {
	Allergen   string  `json:"allergen"`
	Confidence float64 `json:"confidence,omitempty"`
	Why        string  `json:"why,omitempty"`
}

func toDTO(rec domain.DishRecord) dishDTO {
	allergens := make([]allergenDTO, len(rec.Allergens))
	for i, a := range rec.Allergens {
		allergens[i] = allergenDTO{Allergen: a.Allergen, Confidence: a.Confidence, Why: a.Why}
	}
	return dishDTO{
		ID:             rec.ID,
		RestaurantID:   rec.RestaurantID,
		Name:           rec.Name,
		Description:    rec.Description,
		Price:          rec.Price,
		Ingredients:    rec.Ingredients,
		ServingSize:    rec.ServingSize,
		Availability:   rec.Availability,
		Allergens:      allergens,
		NutritionFacts: rec.NutritionFacts,
	}
}

func fromDTO(d dishDTO) domain.DishRecord {
	allergens := make([]domain.Allergen, len(d.Allergens))
	for i, a := range d.Allergens {
		allergens[i] = domain.Allergen{Allergen: a.Allergen, Confidence: a.Confidence, Why: a.Why}
	}
	return domain.DishRecord{
		ID:             d.ID,
		RestaurantID:   d.RestaurantID,
		Name:           d.Name,
		Description:    d.Description,
		Price:          d.Price,
		Ingredients:    d.Ingredients,
		ServingSize:    d.ServingSize,
		Availability:   d.Availability,
		Allergens:      allergens,
		NutritionFacts: d.NutritionFacts,
	}
}
