package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/domain"
)

type mockDecomposer struct {
	result domain.Decomposition
}

func (m *mockDecomposer) Decompose(context.Context, string) domain.Decomposition {
	return m.result
}

// scriptedRetriever maps sub-query -> hits or error.
type scriptedRetriever struct {
	hits   map[string][]domain.DishHit
	errs   map[string]error
	panics map[string]bool
}

func (m *scriptedRetriever) SearchWithNegation(
	_ context.Context, query, _ string,
) ([]domain.DishHit, error) {
	if m.panics[query] {
		panic("retriever exploded")
	}
	if err := m.errs[query]; err != nil {
		return nil, err
	}
	return m.hits[query], nil
}

type allowAllValidator struct{}

func (allowAllValidator) Apply(
	_ domain.DishFilter, dishes []domain.DishRecord,
) ([]domain.DishValidationResult, error) {
	out := make([]domain.DishValidationResult, 0, len(dishes))
	for _, d := range dishes {
		out = append(out, domain.DishValidationResult{DishID: d.ID, Include: true})
	}
	return out, nil
}

func (allowAllValidator) ValidateRelevance(
	_ context.Context, _ string, dishes []domain.DishRecord,
) []domain.DishRecord {
	return dishes
}

type mockInfo struct {
	answer domain.InfoAnswer
	names  []string
	err    error
}

func (m *mockInfo) Answer(
	context.Context, string, string, domain.DishFilter,
) (domain.InfoAnswer, []string, error) {
	if m.err != nil {
		return domain.InfoAnswer{}, nil, m.err
	}
	return m.answer, m.names, nil
}

type mockHistory struct {
	mu        sync.Mutex
	appended  []domain.ChatState
	sessionID string
	appendErr error
}

func (m *mockHistory) Append(_ context.Context, state domain.ChatState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appended = append(m.appended, state)
	return nil
}

func (m *mockHistory) GetOrCreateSession(context.Context, string, string) (string, error) {
	if m.sessionID == "" {
		return "sess_generated", nil
	}
	return m.sessionID, nil
}

func (m *mockHistory) RebuildContext(
	context.Context, string, int,
) ([]domain.SessionContext, error) {
	return nil, nil
}

func dishHit(id, name string) domain.DishHit {
	return domain.DishHit{Dish: domain.DishRecord{ID: id, Name: name}}
}

func newService(
	dec *mockDecomposer, ret *scriptedRetriever, info *mockInfo, hist *mockHistory,
) *Service {
	return New(
		dec, ret, allowAllValidator{}, info, hist,
		Config{StageTimeout: 5 * time.Second, HistoryDepth: 5}, zap.NewNop(),
	)
}

func TestProcess_RejectsMissingFields(t *testing.T) {
	svc := newService(&mockDecomposer{}, &scriptedRetriever{}, &mockInfo{}, &mockHistory{})

	tests := []struct {
		name string
		req  Request
	}{
		{"missing user", Request{RestaurantID: "r", Query: "q"}},
		{"missing restaurant", Request{UserID: "u", Query: "q"}},
		{"missing query", Request{UserID: "u", RestaurantID: "r"}},
		{"blank query", Request{UserID: "u", RestaurantID: "r", Query: "   "}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Process(context.Background(), tc.req)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

// A structurally broken filter is a boundary error, not a soft per-part
// failure: the caller must be able to tell bad filter config apart from
// "no results".
func TestProcess_RejectsInvalidFilter(t *testing.T) {
	dec := &mockDecomposer{result: domain.Decomposition{MenuSearch: []string{"pasta"}}}
	ret := &scriptedRetriever{hits: map[string][]domain.DishHit{
		"pasta": {dishHit("dish-1", "Spaghetti")},
	}}
	hist := &mockHistory{}
	svc := newService(dec, ret, &mockInfo{}, hist)

	_, err := svc.Process(context.Background(), Request{
		UserID: "u1", SessionID: "sess_1", RestaurantID: "rest-1", Query: "pasta",
		Filter: domain.DishFilter{Price: domain.PriceRange{Min: 10, Max: 2}},
	})
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Fatalf("err = %v, want ErrInvalidFilter", err)
	}
	if len(hist.appended) != 0 {
		t.Errorf("no chat state must be recorded for a rejected request, got %d", len(hist.appended))
	}

	negCal := -100.0
	_, err = svc.Process(context.Background(), Request{
		UserID: "u1", SessionID: "sess_1", RestaurantID: "rest-1", Query: "pasta",
		Filter: domain.DishFilter{Nutrition: domain.NutritionBounds{MaxCalories: &negCal}},
	})
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Fatalf("err = %v, want ErrInvalidFilter for negative nutrition bound", err)
	}
}

// The joke scenario: one menu_search part and one irrelevant part must both
// surface, the irrelevant one as a fixed could-not-understand message.
func TestProcess_MenuSearchPlusIrrelevant(t *testing.T) {
	dec := &mockDecomposer{result: domain.Decomposition{
		MenuSearch: []string{"List chocolate cakes"},
		Irrelevant: []string{"Tell me a joke"},
	}}
	ret := &scriptedRetriever{hits: map[string][]domain.DishHit{
		"List chocolate cakes": {dishHit("dish-1", "Chocolate Fudge Cake")},
	}}
	hist := &mockHistory{}
	svc := newService(dec, ret, &mockInfo{}, hist)

	resp, err := svc.Process(context.Background(), Request{
		UserID: "u1", SessionID: "sess_1", RestaurantID: "rest-1",
		Query: "I want a chocolate cake. Tell me a joke.",
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(resp.InformativeInfo) != 2 {
		t.Fatalf("expected 2 entries (one per part), got %d", len(resp.InformativeInfo))
	}
	if resp.InformativeInfo[0].Type != domain.IntentMenuSearch {
		t.Errorf("first entry type = %s", resp.InformativeInfo[0].Type)
	}
	if resp.InformativeInfo[1].Description != msgCouldNotUnderstand {
		t.Errorf("irrelevant entry = %q", resp.InformativeInfo[1].Description)
	}
	if len(resp.Results) != 1 || resp.Results[0].Name != "Chocolate Fudge Cake" {
		t.Errorf("results = %v", resp.Results)
	}
	if resp.Status != domain.StatusSuccess {
		t.Errorf("status = %s", resp.Status)
	}
}

// Partial failure: one failing sub-query among three must not disturb the
// other two, and the overall status stays success.
func TestProcess_PartialFailureIsolated(t *testing.T) {
	dec := &mockDecomposer{result: domain.Decomposition{
		MenuSearch: []string{"pasta", "broken", "salads"},
	}}
	ret := &scriptedRetriever{
		hits: map[string][]domain.DishHit{
			"pasta":  {dishHit("dish-1", "Spaghetti")},
			"salads": {dishHit("dish-2", "Garden Salad")},
		},
		errs: map[string]error{"broken": errors.New("index timeout")},
	}
	svc := newService(dec, ret, &mockInfo{}, &mockHistory{})

	resp, err := svc.Process(context.Background(), Request{
		UserID: "u1", SessionID: "sess_1", RestaurantID: "rest-1", Query: "pasta, broken, salads",
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(resp.InformativeInfo) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(resp.InformativeInfo))
	}
	if resp.InformativeInfo[1].Description != msgPartFailed {
		t.Errorf("failed part entry = %q", resp.InformativeInfo[1].Description)
	}
	if len(resp.Results) != 2 {
		t.Errorf("expected 2 dishes from the healthy parts, got %d", len(resp.Results))
	}
	if resp.Status != domain.StatusSuccess {
		t.Errorf("status = %s, want success with one healthy part", resp.Status)
	}
}

func TestProcess_PanicInSubQueryRecovered(t *testing.T) {
	dec := &mockDecomposer{result: domain.Decomposition{
		MenuSearch: []string{"pasta", "cursed"},
	}}
	ret := &scriptedRetriever{
		hits:   map[string][]domain.DishHit{"pasta": {dishHit("dish-1", "Spaghetti")}},
		panics: map[string]bool{"cursed": true},
	}
	svc := newService(dec, ret, &mockInfo{}, &mockHistory{})

	resp, err := svc.Process(context.Background(), Request{
		UserID: "u1", SessionID: "sess_1", RestaurantID: "rest-1", Query: "pasta and cursed",
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(resp.InformativeInfo) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(resp.InformativeInfo))
	}
	if resp.InformativeInfo[1].Description != msgPartFailed {
		t.Errorf("panicked part entry = %q", resp.InformativeInfo[1].Description)
	}
	if resp.Status != domain.StatusSuccess {
		t.Errorf("status = %s", resp.Status)
	}
}

func TestProcess_AllPartsEmptyIsFailed(t *testing.T) {
	dec := &mockDecomposer{result: domain.Decomposition{
		MenuSearch: []string{"unicorn steak"},
		Irrelevant: []string{"sing me a song"},
	}}
	ret := &scriptedRetriever{} // no hits for anything
	svc := newService(dec, ret, &mockInfo{}, &mockHistory{})

	resp, err := svc.Process(context.Background(), Request{
		UserID: "u1", SessionID: "sess_1", RestaurantID: "rest-1", Query: "unicorn steak",
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if resp.Status != domain.StatusFailed {
		t.Errorf("status = %s, want failed when nothing produced a result", resp.Status)
	}
	if len(resp.InformativeInfo) != 2 {
		t.Errorf("entries = %d, parts must never be dropped", len(resp.InformativeInfo))
	}
}

func TestProcess_DishInfoPath(t *testing.T) {
	dec := &mockDecomposer{result: domain.Decomposition{
		DishInfo: []string{"what is in the tiramisu?"},
	}}
	info := &mockInfo{
		answer: domain.InfoAnswer{DishName: "Tiramisu", RequestedInfo: "ingredients", SourceData: "mascarpone"},
		names:  []string{"Tiramisu"},
	}
	hist := &mockHistory{}
	svc := newService(dec, &scriptedRetriever{}, info, hist)

	resp, err := svc.Process(context.Background(), Request{
		UserID: "u1", SessionID: "sess_1", RestaurantID: "rest-1", Query: "what is in the tiramisu?",
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if resp.Status != domain.StatusSuccess {
		t.Errorf("status = %s", resp.Status)
	}
	if resp.Intent != domain.IntentDishInfo {
		t.Errorf("intent = %s", resp.Intent)
	}
	if len(resp.InformativeInfo) != 1 || resp.InformativeInfo[0].RelevantDishes[0] != "Tiramisu" {
		t.Errorf("info = %+v", resp.InformativeInfo)
	}
}

func TestProcess_BootstrapsSessionWhenEmpty(t *testing.T) {
	dec := &mockDecomposer{result: domain.Decomposition{Irrelevant: []string{"hi"}}}
	hist := &mockHistory{sessionID: "sess_fresh"}
	svc := newService(dec, &scriptedRetriever{}, &mockInfo{}, hist)

	resp, err := svc.Process(context.Background(), Request{
		UserID: "u1", RestaurantID: "rest-1", Query: "hi",
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if resp.SessionID != "sess_fresh" {
		t.Errorf("session id = %s", resp.SessionID)
	}
}

func TestProcess_AppendsChatStateSnapshot(t *testing.T) {
	dec := &mockDecomposer{result: domain.Decomposition{
		MenuSearch: []string{"pasta"},
	}}
	ret := &scriptedRetriever{hits: map[string][]domain.DishHit{
		"pasta": {dishHit("dish-1", "Spaghetti")},
	}}
	hist := &mockHistory{}
	svc := newService(dec, ret, &mockInfo{}, hist)

	_, err := svc.Process(context.Background(), Request{
		UserID: "u1", SessionID: "sess_1", RestaurantID: "rest-1", Query: "pasta",
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(hist.appended) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(hist.appended))
	}
	state := hist.appended[0]
	if state.ID == "" {
		t.Error("chat state id must be set")
	}
	if state.Status != domain.StatusSuccess {
		t.Errorf("state status = %s", state.Status)
	}
	if len(state.MenuResults["pasta"]) != 1 {
		t.Errorf("menu results = %v", state.MenuResults)
	}
	if len(state.QueryParts[domain.IntentMenuSearch]) != 1 {
		t.Errorf("query parts = %v", state.QueryParts)
	}
}

func TestProcess_HistoryFailureDoesNotFailRequest(t *testing.T) {
	dec := &mockDecomposer{result: domain.Decomposition{
		MenuSearch: []string{"pasta"},
	}}
	ret := &scriptedRetriever{hits: map[string][]domain.DishHit{
		"pasta": {dishHit("dish-1", "Spaghetti")},
	}}
	hist := &mockHistory{appendErr: errors.New("redis down")}
	svc := newService(dec, ret, &mockInfo{}, hist)

	resp, err := svc.Process(context.Background(), Request{
		UserID: "u1", SessionID: "sess_1", RestaurantID: "rest-1", Query: "pasta",
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if resp.Status != domain.StatusSuccess {
		t.Errorf("status = %s", resp.Status)
	}
}

func TestContext_RequiresSessionID(t *testing.T) {
	svc := newService(&mockDecomposer{}, &scriptedRetriever{}, &mockInfo{}, &mockHistory{})

	_, err := svc.Context(context.Background(), "")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}
