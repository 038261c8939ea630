package nlu

// Response shapes expected from the oracle. Each is validated by its call
// site; missing keys decode to zero values, which validation catches.

// DecompositionResponse is the decompose-prompt output: three bucket lists.
type DecompositionResponse struct {
	MenuSearch []string `json:"menu_search"`
	DishInfo   []string `json:"dish_info"`
	Irrelevant []string `json:"irrelevant"`
}

// ExpansionResponse is the expand-prompt output.
type ExpansionResponse struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

// InfoClassResponse is the dish-info classification output.
type InfoClassResponse struct {
	Type string `json:"type"`
}

// Dish-info classification outcomes.
const (
	InfoRequiresMenuData = "requires_menu_data"
	InfoGeneralKnowledge = "general_knowledge"
)

// GeneralAnswerResponse is the general-knowledge answer output.
type GeneralAnswerResponse struct {
	Answer string `json:"answer"`
}

// DishAnswerResponse is the menu-grounded dish-info answer output.
type DishAnswerResponse struct {
	DishName      string `json:"dish_name"`
	RequestedInfo string `json:"requested_info"`
	SourceData    string `json:"source_data"`
}

// RelevanceResponse lists the dish ids the validator judged relevant.
type RelevanceResponse struct {
	Keep []string `json:"keep"`
}
