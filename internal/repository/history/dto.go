package history

import (
	"time"

	"github.com/safebites/menuquery/internal/domain"
)

// stateDTO is the stored JSON shape of one chat-state snapshot.
type stateDTO struct {
	ID           string                             `json:"id"`
	UserID       string                             `json:"user_id"`
	SessionID    string                             `json:"session_id"`
	RestaurantID string                             `json:"restaurant_id"`
	Query        string                             `json:"query"`
	QueryParts   map[string][]string                `json:"query_parts,omitempty"`
	Intents      []intentDTO                        `json:"intents,omitempty"`
	MenuResults  map[string][]dishResultDTO         `json:"menu_results,omitempty"`
	InfoResults  map[string]infoAnswerDTO           `json:"info_results,omitempty"`
	Response     string                             `json:"response,omitempty"`
	Status       string                             `json:"status"`
	Timestamp    time.Time                          `json:"timestamp"`
}

type intentDTO struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

type dishResultDTO struct {
	DishID         string             `json:"dish_id"`
	Name           string             `json:"name"`
	Description    string             `json:"description,omitempty"`
	Price          float64            `json:"price"`
	Currency       string             `json:"currency,omitempty"`
	Ingredients    []string           `json:"ingredients,omitempty"`
	ServingSize    string             `json:"serving_size,omitempty"`
	Availability   bool               `json:"availability"`
	Allergens      []string           `json:"allergens,omitempty"`
	NutritionFacts map[string]float64 `json:"nutrition_facts,omitempty"`
}

type infoAnswerDTO struct {
	DishName      string `json:"dish_name,omitempty"`
	RequestedInfo string `json:"requested_info,omitempty"`
	SourceData    string `json:"source_data,omitempty"`
	Answer        string `json:"answer,omitempty"`
	Message       string `json:"message,omitempty"`
}

func toDTO(s domain.ChatState) stateDTO {
	dto := stateDTO{
		ID:           s.ID,
		UserID:       s.UserID,
		SessionID:    s.SessionID,
		RestaurantID: s.RestaurantID,
		Query:        s.Query,
		QueryParts:   s.QueryParts,
		Response:     s.Response,
		Status:       string(s.Status),
		Timestamp:    s.Timestamp,
	}
	for _, in := range s.Intents {
		dto.Intents = append(dto.Intents, intentDTO{Type: in.Type, Query: in.Query})
	}
	if len(s.MenuResults) > 0 {
		dto.MenuResults = make(map[string][]dishResultDTO, len(s.MenuResults))
		for q, dishes := range s.MenuResults {
			out := make([]dishResultDTO, len(dishes))
			for i, d := range dishes {
				out[i] = dishResultDTO{
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
			dto.MenuResults[q] = out
		}
	}
	if len(s.InfoResults) > 0 {
		dto.InfoResults = make(map[string]infoAnswerDTO, len(s.InfoResults))
		for q, a := range s.InfoResults {
			dto.InfoResults[q] = infoAnswerDTO{
				DishName:      a.DishName,
				RequestedInfo: a.RequestedInfo,
				SourceData:    a.SourceData,
				Answer:        a.Answer,
				Message:       a.Message,
			}
		}
	}
	return dto
}

func fromDTO(dto stateDTO) domain.ChatState {
	s := domain.ChatState{
		ID:           dto.ID,
		UserID:       dto.UserID,
		SessionID:    dto.SessionID,
		RestaurantID: dto.RestaurantID,
		Query:        dto.Query,
		QueryParts:   dto.QueryParts,
		Response:     dto.Response,
		Status:       domain.Status(dto.Status),
		Timestamp:    dto.Timestamp,
	}
	for _, in := range dto.Intents {
		s.Intents = append(s.Intents, domain.Intent{Type: in.Type, Query: in.Query})
	}
	if len(dto.MenuResults) > 0 {
		s.MenuResults = make(map[string][]domain.DishResult, len(dto.MenuResults))
		for q, dishes := range dto.MenuResults {
			out := make([]domain.DishResult, len(dishes))
			for i, d := range dishes {
				out[i] = domain.DishResult{
					DishID:         d.DishID,
					Name:           d.Name,
					Description:    d.Description,
					Price:          domain.Price{Value: d.Price, Currency: d.Currency},
					Ingredients:    d.Ingredients,
					ServingSize:    d.ServingSize,
					Availability:   d.Availability,
					Allergens:      d.Allergens,
					NutritionFacts: d.NutritionFacts,
				}
			}
			s.MenuResults[q] = out
		}
	}
	if len(dto.InfoResults) > 0 {
		s.InfoResults = make(map[string]domain.InfoAnswer, len(dto.InfoResults))
		for q, a := range dto.InfoResults {
			s.InfoResults[q] = domain.InfoAnswer{
				DishName:      a.DishName,
				RequestedInfo: a.RequestedInfo,
				SourceData:    a.SourceData,
				Answer:        a.Answer,
				Message:       a.Message,
			}
		}
	}
	return s
}
