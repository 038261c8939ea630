package decompose

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/domain"
)

type mockOracle struct {
	response string
	err      error
	prompts  []string
}

func (m *mockOracle) Complete(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func TestDecompose_SplitsBuckets(t *testing.T) {
	oracle := &mockOracle{
		response: `{"menu_search": ["List chocolate cakes"], "dish_info": [], "irrelevant": ["Tell me a joke"]}`,
	}
	svc := New(oracle, zap.NewNop())

	dec := svc.Decompose(context.Background(), "I want a chocolate cake. Tell me a joke.")

	if len(dec.MenuSearch) != 1 || dec.MenuSearch[0] != "List chocolate cakes" {
		t.Errorf("menu_search = %v", dec.MenuSearch)
	}
	if len(dec.DishInfo) != 0 {
		t.Errorf("dish_info = %v", dec.DishInfo)
	}
	if len(dec.Irrelevant) != 1 || dec.Irrelevant[0] != "Tell me a joke" {
		t.Errorf("irrelevant = %v", dec.Irrelevant)
	}

	intents := dec.Intents()
	if len(intents) != 2 {
		t.Fatalf("expected 2 intents, got %d", len(intents))
	}
	if intents[0].Type != domain.IntentMenuSearch || intents[1].Type != domain.IntentIrrelevant {
		t.Errorf("intent order = %v", intents)
	}
}

func TestDecompose_ToleratesCodeFence(t *testing.T) {
	oracle := &mockOracle{
		response: "```json\n{\"menu_search\": [\"vegan burgers\"], \"dish_info\": [], \"irrelevant\": []}\n```",
	}
	svc := New(oracle, zap.NewNop())

	dec := svc.Decompose(context.Background(), "vegan burgers")

	if len(dec.MenuSearch) != 1 || dec.MenuSearch[0] != "vegan burgers" {
		t.Errorf("menu_search = %v", dec.MenuSearch)
	}
}

func TestDecompose_OracleErrorFallsBackToIrrelevant(t *testing.T) {
	oracle := &mockOracle{err: errors.New("provider down")}
	svc := New(oracle, zap.NewNop())

	dec := svc.Decompose(context.Background(), "pasta without meatballs")

	if len(dec.Irrelevant) != 1 || dec.Irrelevant[0] != "pasta without meatballs" {
		t.Errorf("irrelevant = %v, want whole query", dec.Irrelevant)
	}
	if len(dec.MenuSearch) != 0 || len(dec.DishInfo) != 0 {
		t.Errorf("expected only the irrelevant bucket, got %+v", dec)
	}
}

func TestDecompose_UnparsableFallsBackToIrrelevant(t *testing.T) {
	oracle := &mockOracle{response: "I could not split that query, sorry!"}
	svc := New(oracle, zap.NewNop())

	dec := svc.Decompose(context.Background(), "anything")

	if len(dec.Irrelevant) != 1 || dec.Irrelevant[0] != "anything" {
		t.Errorf("irrelevant = %v, want whole query", dec.Irrelevant)
	}
}

func TestDecompose_AllBucketsEmptyFallsBack(t *testing.T) {
	oracle := &mockOracle{response: `{"menu_search": [], "dish_info": [], "irrelevant": []}`}
	svc := New(oracle, zap.NewNop())

	dec := svc.Decompose(context.Background(), "pizza")

	if len(dec.Irrelevant) != 1 || dec.Irrelevant[0] != "pizza" {
		t.Errorf("irrelevant = %v, want whole query", dec.Irrelevant)
	}
}

func TestDecompose_DropsBlankEntries(t *testing.T) {
	oracle := &mockOracle{
		response: `{"menu_search": ["pasta", "", "  "], "dish_info": [], "irrelevant": []}`,
	}
	svc := New(oracle, zap.NewNop())

	dec := svc.Decompose(context.Background(), "pasta")

	if len(dec.MenuSearch) != 1 || dec.MenuSearch[0] != "pasta" {
		t.Errorf("menu_search = %v", dec.MenuSearch)
	}
}
