package tools

import (
    "net/url"
    "strings"

    "golang.org/x/net/html"
)

const maxLinks = 200

// ExtractLinks returns up to 200 anchors as {href, text} rows. Relative
// hrefs are resolved against baseURL when it parses.
func ExtractLinks(htmlStr, baseURL string) []map[string]string {
    out := []map[string]string{}
    if strings.TrimSpace(htmlStr) == "" { return out }

    var base *url.URL
    if baseURL != "" {
        if u, err := url.Parse(baseURL); err == nil { base = u }
    }

    root, err := html.Parse(strings.NewReader(htmlStr))
    if err != nil { return out }
    var walk func(*html.Node)
    walk = func(n *html.Node) {
        if n == nil || len(out) >= maxLinks { return }
        if n.Type == html.ElementNode && strings.EqualFold(n.Data, "a") {
            var href string
            for _, a := range n.Attr {
                if strings.EqualFold(a.Key, "href") { href = strings.TrimSpace(a.Val); break }
            }
            if href != "" {
                if base != nil {
                    if u, err := url.Parse(href); err == nil { href = base.ResolveReference(u).String() }
                }
                out = append(out, map[string]string{"href": href, "text": nodeText(n)})
            }
        }
        for c := n.FirstChild; c != nil && len(out) < maxLinks; c = c.NextSibling { walk(c) }
    }
    walk(root)
    return out
}

func nodeText(n *html.Node) string {
    var b strings.Builder
    var rec func(*html.Node)
    rec = func(x *html.Node) {
        if x.Type == html.TextNode { b.WriteString(x.Data) }
        for c := x.FirstChild; c != nil; c = c.NextSibling { rec(c) }
    }
    rec(n)
    return strings.Join(strings.Fields(b.String()), " ")
}
