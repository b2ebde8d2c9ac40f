package llm

import (
    "context"
)

// LanguageModel is a single-turn completion capability. When onToken is
// non-nil the reply is streamed to it as it arrives; the full text is still
// returned. Callers serialize their own calls.
type LanguageModel interface {
    Complete(ctx context.Context, prompt string, onToken func(chunk string)) (string, error)
}
