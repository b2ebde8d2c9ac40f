package tools

import (
    "strings"

    "golang.org/x/net/html"
)

// HTMLToText strips markup, scripts and styles and compacts whitespace.
func HTMLToText(htmlStr string) string {
    if htmlStr == "" { return "" }
    node, err := html.Parse(strings.NewReader(htmlStr))
    if err != nil { return "" }
    var b strings.Builder
    extractText(node, &b, false)
    return strings.TrimSpace(compactWhitespace(b.String()))
}

func extractText(n *html.Node, b *strings.Builder, inHidden bool) {
    if n.Type == html.ElementNode {
        switch strings.ToLower(n.Data) {
        case "script", "style", "noscript":
            inHidden = true
        case "br", "p", "div", "li", "tr", "h1", "h2", "h3":
            b.WriteString("\n")
        }
    }
    if !inHidden && n.Type == html.TextNode {
        b.WriteString(n.Data)
    }
    for c := n.FirstChild; c != nil; c = c.NextSibling {
        extractText(c, b, inHidden)
    }
}

func compactWhitespace(s string) string {
    s = strings.ReplaceAll(s, "\t", " ")
    s = strings.ReplaceAll(s, "\r", " ")
    var out []string
    for _, ln := range strings.Split(s, "\n") {
        if ln = strings.Join(strings.Fields(ln), " "); ln != "" {
            out = append(out, ln)
        }
    }
    return strings.Join(out, "\n")
}
