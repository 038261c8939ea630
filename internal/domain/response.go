package domain

// Price is a monetary value with currency.
type Price struct {
	Value    float64
	Currency string
}

// DishResult is one dish in the externally visible response, built from the
// authoritative catalog record of a surviving hit.
type DishResult struct {
	DishID         string
	Name           string
	Description    string
	Price          Price
	Ingredients    []string
	ServingSize    string
	Availability   bool
	Allergens      []string
	NutritionFacts map[string]float64
}

// NewDishResult projects a catalog record into a response dish.
func NewDishResult(rec DishRecord) DishResult {
	return DishResult{
		DishID:         rec.ID,
		Name:           rec.Name,
		Description:    rec.Description,
		Price:          Price{Value: rec.Price, Currency: "USD"},
		Ingredients:    rec.Ingredients,
		ServingSize:    rec.ServingSize,
		Availability:   rec.Availability,
		Allergens:      rec.AllergenNames(),
		NutritionFacts: rec.NutritionFacts,
	}
}

// InfoAnswer is the answer for one dish_info sub-query. Either Answer is set
// (general knowledge), or DishName/RequestedInfo/SourceData are (menu data),
// or Message explains why there is nothing else.
type InfoAnswer struct {
	DishName      string
	RequestedInfo string
	SourceData    string
	Answer        string
	Message       string
}

// InformativeInfo is one entry in the unified response, one per sub-query.
type InformativeInfo struct {
	Type           string
	Query          string
	Description    string
	RelevantDishes []string
}

// UIHints tells the downstream formatter which component to render.
type UIHints struct {
	Component      string
	HighlightField string
}

// UnifiedResponse is the final externally visible artifact of one request.
// InformativeInfo holds exactly one entry per decomposed sub-query, so a
// failed or irrelevant part never disappears from the response.
type UnifiedResponse struct {
	Intent          string
	Query           string
	SessionID       string
	Status          Status
	Results         []DishResult
	InformativeInfo []InformativeInfo
	UIHints         UIHints
}
