package nlu

import (
	"fmt"
	"strings"

	"github.com/safebites/menuquery/internal/domain"
)

const decomposeTemplate = `You are an expert at splitting complex food-related user queries into independent, actionable components.

Your task is to take any user query and produce a JSON object containing three keys:

1. "menu_search" - a list of self-contained queries that ask for dishes, meals, or items.
2. "dish_info" - a list of self-contained queries that ask for information about dishes (ingredients, calories, allergens, price, etc.)
3. "irrelevant" - a list of queries or parts that are unrelated to food or restaurant services.

Important rules:
- Each query part must be self-contained: if a query depends on previous results, include that dependency explicitly.
- Preserve order of dependency: queries that must be processed sequentially should include phrases like "from the dishes above" or "from the previous results".
- Split all queries clearly and avoid ambiguity.
- Respond only in valid JSON, nothing else.

Example:

User Query: "I want a chocolate cake. By the way, tell me a joke."

Output:
{"menu_search": ["List chocolate cakes"], "dish_info": [], "irrelevant": ["Tell me a joke"]}

Now analyze this user query and split it into independent parts:

%s`

// DecomposePrompt builds the query-decomposition prompt.
func DecomposePrompt(query string) string {
	return fmt.Sprintf(decomposeTemplate, query)
}

const expandTemplate = `You are an intent extraction expert for food-related natural language queries.

Your job is to split the query into two lists:
1. Positive intents - what the user explicitly wants or is open to.
   - Expand this list semantically (include closely related dishes, cuisines, or styles).
2. Negative intents - what the user explicitly wants to exclude or avoid.
   - DO NOT over-expand. Keep this list narrowly focused on the specific items, ingredients, or categories mentioned.
   - Avoid including loosely related or parent-category terms.
   - Only include synonyms or direct variants (e.g., "meatballs" -> ["meatball", "meat balls", "polpette"], not "beef" or "meat").

Return the result as valid JSON:
{"positive": [...], "negative": [...]}

Example:
Query: "Pasta dishes without meatballs"
Output: {"positive": ["pasta dishes", "pasta", "spaghetti", "penne", "fettuccine"], "negative": ["meatballs", "meatball", "meat balls", "polpette"]}

Query: %s`

// ExpandPrompt builds the positive/negative intent expansion prompt.
func ExpandPrompt(query string) string {
	return fmt.Sprintf(expandTemplate, query)
}

const classifyInfoTemplate = `You are an intent analyzer for a food assistant.

Given a query, decide whether the answer requires fetching restaurant menu data.

Possible outputs:
- "requires_menu_data" - if the question is about dishes, ingredients, allergens, calories, or menu items that might exist in the restaurant data.
- "general_knowledge" - if the question is conceptual and does not depend on any restaurant data.

Query: %s

Format the response in JSON:
{"type": "requires_menu_data" or "general_knowledge"}`

// ClassifyInfoPrompt builds the menu-dependence classification prompt.
func ClassifyInfoPrompt(query string) string {
	return fmt.Sprintf(classifyInfoTemplate, query)
}

const generalAnswerTemplate = `You are a food assistant. Answer the following query using general food knowledge only.
Do NOT assume restaurant-specific information unless explicitly mentioned.
Query: %s

Format the response in JSON:
{"answer": "your answer to the query"}`

// GeneralAnswerPrompt builds the general-knowledge answer prompt.
func GeneralAnswerPrompt(query string) string {
	return fmt.Sprintf(generalAnswerTemplate, query)
}

const dishAnswerTemplate = `You are a food information assistant.
Using ONLY the following dish data, answer the user's query.
Format the response as JSON:
{"dish_name": ..., "requested_info": ..., "source_data": ...}

User Query: %s

Dish Data:
%s`

// DishAnswerPrompt builds the menu-grounded answer prompt from dish context.
func DishAnswerPrompt(query, context string) string {
	return fmt.Sprintf(dishAnswerTemplate, query, context)
}

const relevanceTemplate = `You are a relevance checker for a restaurant menu assistant.

The user asked: %s

The dishes below passed semantic retrieval. Some may be semantically close but
contextually wrong for the request. Return the ids of the dishes that actually
answer the request.

Dishes:
%s

Format the response in JSON:
{"keep": ["dish_id", ...]}`

// RelevancePrompt builds the secondary relevance-validation prompt.
func RelevancePrompt(query string, dishes []domain.DishRecord) string {
	var b strings.Builder
	for _, d := range dishes {
		fmt.Fprintf(&b, "- id: %s | name: %s | description: %s\n", d.ID, d.Name, d.Description)
	}
	return fmt.Sprintf(relevanceTemplate, query, b.String())
}

// DishContext renders retrieved dishes as the context block for answer
// synthesis, mirroring the catalog document layout.
func DishContext(dishes []domain.DishRecord) string {
	var b strings.Builder
	for _, d := range dishes {
		b.WriteString(d.Document())
		b.WriteString("\n")
	}
	return b.String()
}
