package llm

import (
    "bufio"
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"
)

type OpenAIClient struct {
    APIKey      string
    Model       string
    BaseURL     string
    Temperature float64
    Timeout     time.Duration
}

type chatResponse struct {
    Choices []struct{ Message struct{ Content string `json:"content"` } `json:"message"` } `json:"choices"`
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string, onToken func(string)) (string, error) {
    body := map[string]any{
        "model": c.Model,
        "messages": []map[string]string{{"role": "user", "content": prompt}},
        "temperature": c.Temperature,
    }
    if onToken != nil { return c.stream(ctx, body, onToken) }
    var resp chatResponse
    if err := c.postJSON(ctx, c.endpoint("/v1/chat/completions"), body, &resp); err != nil {
        return "", err
    }
    if len(resp.Choices) == 0 { return "", errors.New("openai: no choices") }
    return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) stream(ctx context.Context, body map[string]any, onToken func(string)) (string, error) {
    body["stream"] = true
    b, _ := json.Marshal(body)
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/chat/completions"), bytes.NewReader(b))
    if err != nil { return "", err }
    req.Header.Set("Authorization", "Bearer "+c.APIKey)
    req.Header.Set("Content-Type", "application/json")
    res, err := (&http.Client{Timeout: timeoutOr(c.Timeout)}).Do(req)
    if err != nil { return "", err }
    defer res.Body.Close()
    if res.StatusCode < 200 || res.StatusCode >= 300 {
        return "", statusError("openai", res)
    }
    var acc strings.Builder
    sc := newLineReader(res.Body)
    for sc.Scan() {
        line := sc.Text()
        if !strings.HasPrefix(line, "data:") { continue }
        data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
        if data == "[DONE]" { break }
        var chunk struct {
            Choices []struct{ Delta struct{ Content string `json:"content"` } `json:"delta"` } `json:"choices"`
        }
        if err := json.Unmarshal([]byte(data), &chunk); err != nil || len(chunk.Choices) == 0 { continue }
        if s := chunk.Choices[0].Delta.Content; s != "" {
            acc.WriteString(s)
            onToken(s)
        }
    }
    if err := sc.Err(); err != nil { return acc.String(), err }
    return acc.String(), nil
}

func (c *OpenAIClient) postJSON(ctx context.Context, url string, body any, out any) error {
    b, _ := json.Marshal(body)
    headers := map[string]string{"Authorization": "Bearer " + c.APIKey}
    return postWithRetry(ctx, "openai", url, b, headers, timeoutOr(c.Timeout), out)
}

func (c *OpenAIClient) endpoint(path string) string {
    base := strings.TrimRight(c.BaseURL, "/")
    if base == "" { base = "https://api.openai.com" }
    return base + path
}

// postWithRetry posts b and decodes a 2xx reply into out. Timeouts, 408, 429
// and 5xx are retried up to three times with exponential backoff.
func postWithRetry(ctx context.Context, provider, url string, b []byte, headers map[string]string, timeout time.Duration, out any) error {
    httpClient := &http.Client{Timeout: timeout}
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
        if err != nil { return err }
        req.Header.Set("Content-Type", "application/json")
        for k, v := range headers { req.Header.Set(k, v) }
        res, err := httpClient.Do(req)
        if err != nil {
            lastErr = err
            if isTimeout(err) { if err := sleep(ctx, backoff(attempt)); err != nil { return err }; continue }
            return err
        }
        if res.StatusCode >= 200 && res.StatusCode < 300 {
            err := json.NewDecoder(res.Body).Decode(out)
            res.Body.Close()
            return err
        }
        lastErr = statusError(provider, res)
        res.Body.Close()
        if res.StatusCode == 408 || res.StatusCode == 429 || (res.StatusCode >= 500 && res.StatusCode <= 599) {
            if err := sleep(ctx, backoff(attempt)); err != nil { return err }
            continue
        }
        return lastErr
    }
    return lastErr
}

func statusError(provider string, res *http.Response) error {
    var eresp map[string]any
    _ = json.NewDecoder(res.Body).Decode(&eresp)
    return fmt.Errorf("%s status %d: %v", provider, res.StatusCode, eresp)
}

func timeoutOr(d time.Duration) time.Duration {
    if d > 0 { return d }
    return 45 * time.Second
}

func isTimeout(err error) bool {
    type timeout interface{ Timeout() bool }
    var te timeout
    if errors.As(err, &te) { return te.Timeout() }
    return false
}

func backoff(i int) time.Duration {
    return time.Duration(500*(1<<i)) * time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) error {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}

// newLineReader returns a scanner for SSE lines.
func newLineReader(r io.Reader) *bufio.Scanner {
    sc := bufio.NewScanner(r)
    buf := make([]byte, 0, 64*1024)
    sc.Buffer(buf, 1024*1024)
    return sc
}
