package expand

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type mockOracle struct {
	response string
	err      error
}

func (m *mockOracle) Complete(context.Context, string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func TestExpand_PositiveAndNegative(t *testing.T) {
	oracle := &mockOracle{
		response: `{"positive": ["pasta dishes", "pasta", "spaghetti"], "negative": ["meatballs", "meat balls"]}`,
	}
	svc := New(oracle, zap.NewNop())

	qi := svc.Expand(context.Background(), "Pasta dishes without meatballs")

	if len(qi.Positive) != 3 || qi.Positive[1] != "pasta" {
		t.Errorf("positive = %v", qi.Positive)
	}
	if len(qi.Negative) != 2 || qi.Negative[0] != "meatballs" {
		t.Errorf("negative = %v", qi.Negative)
	}
}

func TestExpand_FallbackIsExactlyLiteralQuery(t *testing.T) {
	tests := []struct {
		name   string
		oracle *mockOracle
	}{
		{"oracle error", &mockOracle{err: errors.New("timeout")}},
		{"not JSON", &mockOracle{response: "these are some nice pasta ideas"}},
		{"truncated JSON", &mockOracle{response: `{"positive": ["pasta"`}},
		{"no positives", &mockOracle{response: `{"positive": [], "negative": ["meat"]}`}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := New(tc.oracle, zap.NewNop())

			qi := svc.Expand(context.Background(), "Pasta dishes without meatballs")

			if len(qi.Positive) != 1 || qi.Positive[0] != "Pasta dishes without meatballs" {
				t.Errorf("positive = %v, want exactly the original sub-query", qi.Positive)
			}
			if len(qi.Negative) != 0 {
				t.Errorf("negative = %v, want empty", qi.Negative)
			}
		})
	}
}

func TestExpand_ToleratesFencedResponse(t *testing.T) {
	oracle := &mockOracle{
		response: "Here you go:\n```json\n{\"positive\": [\"vegan burger\"], \"negative\": []}\n```",
	}
	svc := New(oracle, zap.NewNop())

	qi := svc.Expand(context.Background(), "vegan burger")

	if len(qi.Positive) != 1 || qi.Positive[0] != "vegan burger" {
		t.Errorf("positive = %v", qi.Positive)
	}
}
