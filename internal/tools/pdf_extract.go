package tools

import (
    "context"
    "fmt"
    "os"
    "strconv"
    "strings"

    pdfx "github.com/ledongthuc/pdf"
)

// PDFText extracts plain text from the PDF at path. pages is a range list like
// "1-3,7"; empty means every page up to PDF_MAX_PAGES.
func (t *Toolbox) PDFText(ctx context.Context, path, pages string) (string, error) {
    st, err := os.Stat(path)
    if err != nil { return "", err }
    maxBytes := envInt("PDF_MAX_BYTES", 20*1024*1024)
    if st.Size() > int64(maxBytes) { return "", fmt.Errorf("pdf too large: %d bytes > limit %d", st.Size(), maxBytes) }
    maxPages := envInt("PDF_MAX_PAGES", 20)

    f, r, err := pdfx.Open(path)
    if err != nil { return "", err }
    defer f.Close()
    totalPages := r.NumPage()
    selected := expandPages(pages, totalPages)
    if len(selected) == 0 { for i := 1; i <= totalPages; i++ { selected = append(selected, i) } }
    if len(selected) > maxPages { selected = selected[:maxPages] }

    var out strings.Builder
    cb := tokenCallback(ctx)
    for _, page := range selected {
        if err := ctx.Err(); err != nil { return "", err }
        p := r.Page(page)
        if p.V.IsNull() { continue }
        txt, _ := p.GetPlainText(nil)
        if txt = strings.TrimSpace(txt); txt != "" {
            if cb != nil { cb(fmt.Sprintf("\n\n--- Page %d ---\n%s", page, txt)) }
            out.WriteString(txt)
            out.WriteString("\n\n")
        }
    }
    return strings.TrimSpace(out.String()), nil
}

func expandPages(ranges string, total int) []int {
    var out []int
    ranges = strings.TrimSpace(ranges)
    if ranges == "" { return out }
    seen := map[int]struct{}{}
    add := func(n int) {
        if n >= 1 && n <= total {
            if _, ok := seen[n]; !ok { out = append(out, n); seen[n] = struct{}{} }
        }
    }
    for _, p := range strings.Split(ranges, ",") {
        p = strings.TrimSpace(p)
        if p == "" { continue }
        if strings.Contains(p, "-") {
            rng := strings.SplitN(p, "-", 2)
            a, _ := strconv.Atoi(strings.TrimSpace(rng[0]))
            b, _ := strconv.Atoi(strings.TrimSpace(rng[1]))
            if a > b { a, b = b, a }
            for i := a; i <= b; i++ { add(i) }
        } else {
            n, _ := strconv.Atoi(p)
            add(n)
        }
    }
    return out
}
