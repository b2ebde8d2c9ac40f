package tools

import (
    "context"
    "fmt"
    "strings"
)

// Ask sends a free-form question to the language model.
func (t *Toolbox) Ask(ctx context.Context, question string) (string, error) {
    if strings.TrimSpace(question) == "" { return "", fmt.Errorf("missing question") }
    if t.Client == nil { return "", fmt.Errorf("no language model configured") }
    return t.Client.Complete(ctx, question, tokenCallback(ctx))
}
