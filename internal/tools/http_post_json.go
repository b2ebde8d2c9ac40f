package tools

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
)

// PostJSON posts payload as JSON to rawURL. A string payload is sent as is.
func (t *Toolbox) PostJSON(ctx context.Context, rawURL string, payload any) (string, error) {
    if rawURL == "" { return "", fmt.Errorf("missing url") }
    u, err := url.Parse(rawURL)
    if err != nil { return "", fmt.Errorf("invalid url: %w", err) }
    if u.Scheme != "http" && u.Scheme != "https" {
        return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
    }

    var bodyBytes []byte
    if s, ok := payload.(string); ok && s != "" {
        bodyBytes = []byte(s)
    } else {
        bodyBytes, err = json.Marshal(payload)
        if err != nil { return "", fmt.Errorf("marshal json: %w", err) }
    }

    req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(bodyBytes))
    if err != nil { return "", err }
    req.Header.Set("Content-Type", "application/json")
    client := &http.Client{Timeout: t.timeout()}

    resp, err := client.Do(req)
    if err != nil { return "", err }
    defer resp.Body.Close()

    lr := io.LimitedReader{R: resp.Body, N: int64(t.maxBytes())}
    b, _ := io.ReadAll(&lr)
    if resp.StatusCode >= 400 {
        return string(b), fmt.Errorf("POST %s: status %d", rawURL, resp.StatusCode)
    }
    return string(b), nil
}
