package expand

import "context"

// Oracle produces raw natural-language completions.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
