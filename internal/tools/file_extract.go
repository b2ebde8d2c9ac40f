package tools

import (
    "context"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
)

var plainExts = map[string]bool{"txt": true, "md": true, "markdown": true, "csv": true, "json": true, "log": true, "yaml": true, "yml": true}

// FileText returns the text of a local PDF, HTML or plain-text file.
func (t *Toolbox) FileText(ctx context.Context, path string) (string, error) {
    buf, err := os.ReadFile(path)
    if err != nil { return "", err }
    max := envInt("FILE_MAX_BYTES", 20*1024*1024)
    if len(buf) > max { return "", fmt.Errorf("file too large: %d bytes > limit %d", len(buf), max) }

    ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
    if strings.HasPrefix(string(buf), "%PDF-") || ext == "pdf" {
        return t.PDFText(ctx, path, "")
    }

    looksHTML := ext == "html" || ext == "htm"
    if !looksHTML {
        s := strings.ToLower(string(buf))
        looksHTML = strings.Contains(s, "<html") || strings.Contains(s, "<body")
    }
    if looksHTML { return HTMLToText(string(buf)), nil }

    if plainExts[ext] || ext == "" {
        return strings.TrimSpace(string(buf)), nil
    }
    return "", errors.New("unsupported file type; provide PDF/HTML/text/CSV/JSON/YAML")
}
