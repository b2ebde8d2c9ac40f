package tools

import (
    "context"
    "fmt"
    "strings"

    "golang.org/x/sync/errgroup"
)

const (
    chunkChars   = 8000
    chunkOverlap = 400
)

// Summarize condenses text with the language model. Long text is split into
// overlapping chunks, each summarized with bounded concurrency, then the
// section summaries are reduced. Only the reduce phase streams.
func (t *Toolbox) Summarize(ctx context.Context, text string) (string, error) {
    if strings.TrimSpace(text) == "" { return "", fmt.Errorf("missing text") }
    if t.Client == nil { return "", fmt.Errorf("no language model configured") }
    parts := splitChunks(text, envInt("CHUNK_CHARS", chunkChars), envInt("CHUNK_OVERLAP", chunkOverlap))
    if len(parts) == 1 {
        prompt := fmt.Sprintf("Summarize the following text in a concise way (3-5 bullet points or a short paragraph). Focus on key facts.\n\nText:\n%s", text)
        return t.Client.Complete(ctx, prompt, tokenCallback(ctx))
    }

    out := make([]string, len(parts))
    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(envInt("CHUNK_MAX_PAR", 3))
    for i, p := range parts {
        g.Go(func() error {
            prompt := fmt.Sprintf("Summarize this section into 3-5 concise bullets focusing on key facts.\n\nSection %d/%d:\n%s", i+1, len(parts), p)
            s, err := t.Client.Complete(gctx, prompt, nil)
            if err != nil { return err }
            out[i] = s
            return nil
        })
    }
    if err := g.Wait(); err != nil { return "", err }

    var combined strings.Builder
    for i, s := range out { fmt.Fprintf(&combined, "\n\n[Section %d]\n%s", i+1, s) }
    prompt := "Combine the following section summaries into a single clear summary (bullets or short paragraphs). Avoid repetition; preserve critical details.\n\nSummaries:" + combined.String()
    return t.Client.Complete(ctx, prompt, tokenCallback(ctx))
}

func splitChunks(s string, size, overlap int) []string {
    if size < 1000 { size = 1000 }
    if overlap < 0 { overlap = 0 }
    var out []string
    for start := 0; start < len(s); {
        end := start + size
        if end > len(s) { end = len(s) }
        out = append(out, s[start:end])
        if end == len(s) { break }
        next := end - overlap
        if next <= start { next = end }
        start = next
    }
    return out
}
