// Package gemini is the Google AI SDK backed provider.
package gemini

import (
    "context"
    "errors"
    "strings"

    genai "github.com/google/generative-ai-go/genai"
    "google.golang.org/api/iterator"
    "google.golang.org/api/option"
)

type Model struct {
    client *genai.Client
    model  *genai.GenerativeModel
}

func New(ctx context.Context, apiKey, model string) (*Model, error) {
    if apiKey == "" { return nil, errors.New("gemini: missing API key") }
    c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
    if err != nil { return nil, err }
    return &Model{client: c, model: c.GenerativeModel(model)}, nil
}

func (m *Model) Complete(ctx context.Context, prompt string, onToken func(chunk string)) (string, error) {
    if onToken == nil {
        resp, err := m.model.GenerateContent(ctx, genai.Text(prompt))
        if err != nil { return "", err }
        return responseText(resp), nil
    }
    var acc strings.Builder
    iter := m.model.GenerateContentStream(ctx, genai.Text(prompt))
    for {
        resp, err := iter.Next()
        if errors.Is(err, iterator.Done) { break }
        if err != nil { return acc.String(), err }
        if t := responseText(resp); t != "" {
            acc.WriteString(t)
            onToken(t)
        }
    }
    return acc.String(), nil
}

func (m *Model) Close() error { return m.client.Close() }

func responseText(r *genai.GenerateContentResponse) string {
    if r == nil { return "" }
    var b strings.Builder
    for _, c := range r.Candidates {
        if c.Content == nil { continue }
        for _, part := range c.Content.Parts {
            if t, ok := part.(genai.Text); ok { b.WriteString(string(t)) }
        }
        break
    }
    return b.String()
}
