package dishfilter

import "context"

// Oracle produces raw natural-language completions for relevance checks.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
