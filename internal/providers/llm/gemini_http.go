package llm

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/url"
    "strings"
    "time"
)

// GeminiHTTPClient talks to the generateContent REST endpoint directly.
// It does not stream; onToken receives the whole reply once.
type GeminiHTTPClient struct {
    APIKey  string
    Model   string
    BaseURL string
    Timeout time.Duration
}

func (c *GeminiHTTPClient) Complete(ctx context.Context, prompt string, onToken func(string)) (string, error) {
    base := strings.TrimRight(c.BaseURL, "/")
    if base == "" { base = "https://generativelanguage.googleapis.com/v1beta" }
    endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", base, url.PathEscape(c.Model), url.QueryEscape(c.APIKey))
    body := map[string]any{
        "contents": []map[string]any{{
            "role":  "user",
            "parts": []map[string]string{{"text": prompt}},
        }},
    }
    b, _ := json.Marshal(body)
    var out struct{
        Candidates []struct{
            Content struct{ Parts []struct{ Text string `json:"text"` } `json:"parts"` } `json:"content"`
        } `json:"candidates"`
    }
    if err := postWithRetry(ctx, "gemini", endpoint, b, nil, timeoutOr(c.Timeout), &out); err != nil { return "", err }
    if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
        return "", errors.New("gemini: no candidates")
    }
    var txt strings.Builder
    for _, p := range out.Candidates[0].Content.Parts { txt.WriteString(p.Text) }
    if onToken != nil && txt.Len() > 0 { onToken(txt.String()) }
    return txt.String(), nil
}
