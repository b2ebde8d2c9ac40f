package tools

import (
    "context"
    "fmt"
    "io"
    "net/http"

    "go.uber.org/zap"
)

// HTTPGet fetches url and returns the body, capped at MaxBytes.
func (t *Toolbox) HTTPGet(ctx context.Context, url string) (string, error) {
    if url == "" {
        return "", fmt.Errorf("missing url")
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
    if err != nil {
        return "", err
    }
    if t.UserAgent != "" { req.Header.Set("User-Agent", t.UserAgent) }
    client := &http.Client{Timeout: t.timeout()}
    resp, err := client.Do(req)
    if err != nil {
        return "", err
    }
    defer resp.Body.Close()
    if resp.StatusCode >= 400 {
        return "", fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
    }
    lr := io.LimitedReader{R: resp.Body, N: int64(t.maxBytes())}
    b, _ := io.ReadAll(&lr)
    t.logger().Debug("http get", zap.String("url", url), zap.Int("status", resp.StatusCode), zap.Bool("truncated", lr.N == 0))
    return string(b), nil
}
