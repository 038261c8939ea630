package chi

import (
	"github.com/safebites/menuquery/internal/domain"
	pipelineuc "github.com/safebites/menuquery/internal/usecase/pipeline"
)

// Error response codes.
const (
	codeBadRequest        = "bad_request"
	codeInvalidFilter     = "invalid_filter"
	codeNotFound          = "not_found"
	codeRebuildInProgress = "rebuild_in_progress"
	codeIndexNotReady     = "index_not_ready"
	codeQuotaExceeded     = "quota_exceeded"
	codeProviderError     = "provider_error"
	codeInternalError     = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type chatQueryRequest struct {
	UserID       string      `json:"user_id"`
	SessionID    string      `json:"session_id,omitempty"`
	RestaurantID string      `json:"restaurant_id"`
	Query        string      `json:"query"`
	Filter       *dishFilter `json:"filter,omitempty"`
}

type dishFilter struct {
	Price       *priceRange       `json:"price,omitempty"`
	Ingredients *ingredientFilter `json:"ingredients,omitempty"`
	Allergens   *allergenFilter   `json:"allergens,omitempty"`
	Nutrition   *nutritionBounds  `json:"nutrition,omitempty"`
}

type priceRange struct {
	Min float64 `json:"min,omitempty"`
	Max float64 `json:"max,omitempty"`
}

type ingredientFilter struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

type allergenFilter struct {
	Exclude []string `json:"exclude,omitempty"`
}

type nutritionBounds struct {
	MaxCalories *float64 `json:"max_calories,omitempty"`
	MinProtein  *float64 `json:"min_protein,omitempty"`
	MaxFat      *float64 `json:"max_fat,omitempty"`
	MaxCarbs    *float64 `json:"max_carbs,omitempty"`
}

type unifiedResponse struct {
	Intent          string            `json:"intent"`
	Query           string            `json:"query"`
	SessionID       string            `json:"session_id"`
	Status          string            `json:"status"`
	Results         []dishResult      `json:"results"`
	InformativeInfo []informativeInfo `json:"informative_info"`
	UIHints         uiHints           `json:"ui_hints"`
}

type dishResult struct {
	DishID         string             `json:"dish_id"`
	Name           string             `json:"name"`
	Description    string             `json:"description,omitempty"`
	Price          price              `json:"price"`
	Ingredients    []string           `json:"ingredients,omitempty"`
	ServingSize    string             `json:"serving_size,omitempty"`
	Availability   bool               `json:"availability"`
	Allergens      []string           `json:"allergens,omitempty"`
	NutritionFacts map[string]float64 `json:"nutrition_facts,omitempty"`
}

type price struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

type informativeInfo struct {
	Type           string   `json:"type"`
	Query          string   `json:"query"`
	Description    string   `json:"description"`
	RelevantDishes []string `json:"relevant_dishes,omitempty"`
}

type uiHints struct {
	Component      string `json:"component"`
	HighlightField string `json:"highlight_field,omitempty"`
}

type sessionContextEntry struct {
	Query       string                  `json:"query"`
	Intents     []intentEntry           `json:"intents"`
	MenuResults map[string][]dishResult `json:"menu_results,omitempty"`
	InfoResults map[string]infoAnswer   `json:"info_results,omitempty"`
}

type intentEntry struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

type infoAnswer struct {
	DishName      string `json:"dish_name,omitempty"`
	RequestedInfo string `json:"requested_info,omitempty"`
	SourceData    string `json:"source_data,omitempty"`
	Answer        string `json:"answer,omitempty"`
	Message       string `json:"message,omitempty"`
}

type rebuildResponse struct {
	Status string `json:"status"`
}

type healthResponse struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	IndexReady bool   `json:"index_ready"`
	IndexSize  int    `json:"index_size"`
}

func (r chatQueryRequest) toPipelineRequest() pipelineuc.Request {
	req := pipelineuc.Request{
		UserID:       r.UserID,
		SessionID:    r.SessionID,
		RestaurantID: r.RestaurantID,
		Query:        r.Query,
	}
	if f := r.Filter; f != nil {
		if f.Price != nil {
			req.Filter.Price = domain.PriceRange{Min: f.Price.Min, Max: f.Price.Max}
		}
		if f.Ingredients != nil {
			req.Filter.Ingredients = domain.IngredientFilter{
				Include: f.Ingredients.Include,
				Exclude: f.Ingredients.Exclude,
			}
		}
		if f.Allergens != nil {
			req.Filter.Allergens = domain.AllergenFilter{Exclude: f.Allergens.Exclude}
		}
		if f.Nutrition != nil {
			req.Filter.Nutrition = domain.NutritionBounds{
				MaxCalories: f.Nutrition.MaxCalories,
				MinProtein:  f.Nutrition.MinProtein,
				MaxFat:      f.Nutrition.MaxFat,
				MaxCarbs:    f.Nutrition.MaxCarbs,
			}
		}
	}
	return req
}

func responseToDTO(resp domain.UnifiedResponse) unifiedResponse {
	out := unifiedResponse{
		Intent:          resp.Intent,
		Query:           resp.Query,
		SessionID:       resp.SessionID,
		Status:          string(resp.Status),
		Results:         make([]dishResult, 0, len(resp.Results)),
		InformativeInfo: make([]informativeInfo, 0, len(resp.InformativeInfo)),
		UIHints: uiHints{
			Component:      resp.UIHints.Component,
			HighlightField: resp.UIHints.HighlightField,
		},
	}
	for _, d := range resp.Results {
		out.Results = append(out.Results, dishResultToDTO(d))
	}
	for _, info := range resp.InformativeInfo {
		out.InformativeInfo = append(out.InformativeInfo, informativeInfo{
			Type:           info.Type,
			Query:          info.Query,
			Description:    info.Description,
			RelevantDishes: info.RelevantDishes,
		})
	}
	return out
}

func dishResultToDTO(d domain.DishResult) dishResult {
	return dishResult{
		DishID:         d.DishID,
		Name:           d.Name,
		Description:    d.Description,
		Price:          price{Value: d.Price.Value, Currency: d.Price.Currency},
		Ingredients:    d.Ingredients,
		ServingSize:    d.ServingSize,
		Availability:   d.Availability,
		Allergens:      d.Allergens,
		NutritionFacts: d.NutritionFacts,
	}
}

func contextToDTO(entries []domain.SessionContext) []sessionContextEntry {
	out := make([]sessionContextEntry, 0, len(entries))
	for _, e := range entries {
		entry := sessionContextEntry{
			Query:   e.Query,
			Intents: make([]intentEntry, 0, len(e.Intents)),
		}
		for _, it := range e.Intents {
			entry.Intents = append(entry.Intents, intentEntry{Type: it.Type, Query: it.Query})
		}
		if len(e.MenuResults) > 0 {
			entry.MenuResults = make(map[string][]dishResult, len(e.MenuResults))
			for q, dishes := range e.MenuResults {
				dtos := make([]dishResult, 0, len(dishes))
				for _, d := range dishes {
					dtos = append(dtos, dishResultToDTO(d))
				}
				entry.MenuResults[q] = dtos
			}
		}
		if len(e.InfoResults) > 0 {
			entry.InfoResults = make(map[string]infoAnswer, len(e.InfoResults))
			for q, a := range e.InfoResults {
				entry.InfoResults[q] = infoAnswer{
					DishName:      a.DishName,
					RequestedInfo: a.RequestedInfo,
					SourceData:    a.SourceData,
					Answer:        a.Answer,
					Message:       a.Message,
				}
			}
		}
		out = append(out, entry)
	}
	return out
}
