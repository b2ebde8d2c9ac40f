package tools

import (
    "context"
    "fmt"
    "net/http"
    "net/url"
    "strings"

    "github.com/go-shiori/go-readability"
    "github.com/microcosm-cc/bluemonday"
)

const maxArticleChars = 50000

// ReadArticle fetches a page and returns its main content as
// {url, title, byline, excerpt, text}.
func (t *Toolbox) ReadArticle(ctx context.Context, rawURL string) (map[string]string, error) {
    parsedURL, err := url.Parse(rawURL)
    if err != nil || parsedURL.Host == "" {
        return nil, fmt.Errorf("invalid url %q", rawURL)
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
    if err != nil { return nil, err }
    if t.UserAgent != "" { req.Header.Set("User-Agent", t.UserAgent) }
    resp, err := (&http.Client{Timeout: t.timeout()}).Do(req)
    if err != nil { return nil, fmt.Errorf("fetch %s: %w", rawURL, err) }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
    }

    article, err := readability.FromReader(resp.Body, parsedURL)
    if err != nil { return nil, fmt.Errorf("parse article: %w", err) }

    p := bluemonday.StrictPolicy()
    text := strings.TrimSpace(p.Sanitize(article.TextContent))
    if len(text) > maxArticleChars { text = text[:maxArticleChars] + "\n... (content truncated) ..." }
    return map[string]string{
        "url":     rawURL,
        "title":   p.Sanitize(article.Title),
        "byline":  p.Sanitize(article.Byline),
        "excerpt": p.Sanitize(article.Excerpt),
        "text":    text,
    }, nil
}
