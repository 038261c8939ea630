package menuquery

import (
	"github.com/safebites/menuquery/internal/domain"
)

// Filter is the deterministic dietary constraint set applied to retrieved
// dishes. The zero value applies no constraints.
type Filter struct {
	MinPrice float64
	MaxPrice float64 // 0 = unbounded

	IncludeIngredients []string
	ExcludeIngredients []string
	ExcludeAllergens   []string

	MaxCalories *float64
	MinProtein  *float64
	MaxFat      *float64
	MaxCarbs    *float64
}

func (f *Filter) toDomain() domain.DishFilter {
	if f == nil {
		return domain.DishFilter{}
	}
	return domain.DishFilter{
		Price: domain.PriceRange{Min: f.MinPrice, Max: f.MaxPrice},
		Ingredients: domain.IngredientFilter{
			Include: f.IncludeIngredients,
			Exclude: f.ExcludeIngredients,
		},
		Allergens: domain.AllergenFilter{Exclude: f.ExcludeAllergens},
		Nutrition: domain.NutritionBounds{
			MaxCalories: f.MaxCalories,
			MinProtein:  f.MinProtein,
			MaxFat:      f.MaxFat,
			MaxCarbs:    f.MaxCarbs,
		},
	}
}

// Dish is one dish in a chat response.
type Dish struct {
	DishID         string
	Name           string
	Description    string
	Price          float64
	Currency       string
	Ingredients    []string
	ServingSize    string
	Availability   bool
	Allergens      []string
	NutritionFacts map[string]float64
}

// Info is the per-sub-query summary entry. Every decomposed part of the
// query yields exactly one entry, failed and irrelevant parts included.
type Info struct {
	Type           string
	Query          string
	Description    string
	RelevantDishes []string
}

// Answer is the outcome of one dish_info sub-query.
type Answer struct {
	DishName      string
	RequestedInfo string
	SourceData    string
	Answer        string
	Message       string
}

// Response is the unified result of one chat query.
type Response struct {
	Intent      string
	Query       string
	SessionID   string
	Status      string
	Results     []Dish
	Info        []Info
	UIComponent string
}

// Intent is one decomposed sub-query tagged with its bucket.
type Intent struct {
	Type  string
	Query string
}

// HistoryEntry is one reconstructed prior turn of a session.
type HistoryEntry struct {
	Query       string
	Intents     []Intent
	MenuResults map[string][]Dish
	InfoResults map[string]Answer
}

func fromDish(d domain.DishResult) Dish {
	return Dish{
		DishID:         d.DishID,
		Name:           d.Name,
		Description:    d.Description,
		Price:          d.Price.Value,
		Currency:       d.Price.Currency,
		Ingredients:    d.Ingredients,
		ServingSize:    d.ServingSize,
		Availability:   d.Availability,
		Allergens:      d.Allergens,
		NutritionFacts: d.NutritionFacts,
	}
}

func fromDishes(in []domain.DishResult) []Dish {
	out := make([]Dish, len(in))
	for i, d := range in {
		out[i] = fromDish(d)
	}
	return out
}

func fromAnswer(a domain.InfoAnswer) Answer {
	return Answer{
		DishName:      a.DishName,
		RequestedInfo: a.RequestedInfo,
		SourceData:    a.SourceData,
		Answer:        a.Answer,
		Message:       a.Message,
	}
}

func fromResponse(r domain.UnifiedResponse) Response {
	info := make([]Info, len(r.InformativeInfo))
	for i, e := range r.InformativeInfo {
		info[i] = Info{
			Type:           e.Type,
			Query:          e.Query,
			Description:    e.Description,
			RelevantDishes: e.RelevantDishes,
		}
	}
	return Response{
		Intent:      r.Intent,
		Query:       r.Query,
		SessionID:   r.SessionID,
		Status:      string(r.Status),
		Results:     fromDishes(r.Results),
		Info:        info,
		UIComponent: r.UIHints.Component,
	}
}

func fromContext(in []domain.SessionContext) []HistoryEntry {
	out := make([]HistoryEntry, len(in))
	for i, c := range in {
		intents := make([]Intent, len(c.Intents))
		for j, it := range c.Intents {
			intents[j] = Intent{Type: it.Type, Query: it.Query}
		}
		menu := make(map[string][]Dish, len(c.MenuResults))
		for q, dishes := range c.MenuResults {
			menu[q] = fromDishes(dishes)
		}
		answers := make(map[string]Answer, len(c.InfoResults))
		for q, a := range c.InfoResults {
			answers[q] = fromAnswer(a)
		}
		out[i] = HistoryEntry{
			Query:       c.Query,
			Intents:     intents,
			MenuResults: menu,
			InfoResults: answers,
		}
	}
	return out
}
