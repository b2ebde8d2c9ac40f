package llm

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "strings"
    "time"
)

type AnthropicClient struct {
    APIKey    string
    Model     string
    BaseURL   string
    MaxTokens int
    Timeout   time.Duration
}

func (c *AnthropicClient) body(prompt string) map[string]any {
    max := c.MaxTokens
    if max <= 0 { max = 4096 }
    return map[string]any{
        "model": c.Model,
        "max_tokens": max,
        "messages": []map[string]any{{
            "role": "user",
            "content": []map[string]string{{"type": "text", "text": prompt}},
        }},
    }
}

func (c *AnthropicClient) headers() map[string]string {
    return map[string]string{"x-api-key": c.APIKey, "anthropic-version": "2023-06-01"}
}

func (c *AnthropicClient) endpoint() string {
    base := strings.TrimRight(c.BaseURL, "/")
    if base == "" { base = "https://api.anthropic.com" }
    return base + "/v1/messages"
}

func (c *AnthropicClient) Complete(ctx context.Context, prompt string, onToken func(string)) (string, error) {
    if onToken != nil { return c.stream(ctx, prompt, onToken) }
    b, _ := json.Marshal(c.body(prompt))
    var resp struct{ Content []struct{ Text string `json:"text"` } `json:"content"` }
    if err := postWithRetry(ctx, "anthropic", c.endpoint(), b, c.headers(), timeoutOr(c.Timeout), &resp); err != nil {
        return "", err
    }
    if len(resp.Content) == 0 { return "", errors.New("anthropic: no content") }
    var out strings.Builder
    for _, part := range resp.Content { out.WriteString(part.Text) }
    return out.String(), nil
}

// stream reads the messages SSE feed and forwards text deltas.
func (c *AnthropicClient) stream(ctx context.Context, prompt string, onToken func(string)) (string, error) {
    body := c.body(prompt)
    body["stream"] = true
    b, _ := json.Marshal(body)
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(b))
    if err != nil { return "", err }
    req.Header.Set("content-type", "application/json")
    for k, v := range c.headers() { req.Header.Set(k, v) }
    res, err := (&http.Client{Timeout: timeoutOr(c.Timeout)}).Do(req)
    if err != nil { return "", err }
    defer res.Body.Close()
    if res.StatusCode < 200 || res.StatusCode >= 300 {
        return "", statusError("anthropic", res)
    }
    var acc strings.Builder
    sc := newLineReader(res.Body)
    for sc.Scan() {
        line := sc.Text()
        if !strings.HasPrefix(line, "data:") { continue }
        var ev struct {
            Type  string `json:"type"`
            Delta struct {
                Type string `json:"type"`
                Text string `json:"text"`
            } `json:"delta"`
            Error *struct{ Message string `json:"message"` } `json:"error"`
        }
        if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &ev); err != nil { continue }
        switch ev.Type {
        case "content_block_delta":
            if ev.Delta.Text != "" {
                acc.WriteString(ev.Delta.Text)
                onToken(ev.Delta.Text)
            }
        case "error":
            if ev.Error != nil { return acc.String(), errors.New("anthropic: " + ev.Error.Message) }
        case "message_stop":
            return acc.String(), nil
        }
    }
    return acc.String(), sc.Err()
}
