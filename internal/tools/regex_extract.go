package tools

import (
    "fmt"
    "regexp"
    "strings"
)

const maxMatches = 1000

// RegexExtract returns every match of pattern in text as the full match
// followed by its submatches.
func RegexExtract(text, pattern string) ([][]string, error) {
    rx, err := compile(pattern)
    if err != nil { return nil, err }
    out := rx.FindAllStringSubmatch(text, maxMatches)
    if out == nil { out = [][]string{} }
    return out, nil
}

// RegexExtractNamed returns one row per match keyed by the pattern's named
// groups.
func RegexExtractNamed(text, pattern string) ([]map[string]string, error) {
    rx, err := compile(pattern)
    if err != nil { return nil, err }
    names := rx.SubexpNames()
    hasNamed := false
    for _, n := range names { if n != "" { hasNamed = true; break } }
    if !hasNamed { return nil, fmt.Errorf("pattern has no named groups") }

    rows := []map[string]string{}
    for _, idx := range rx.FindAllStringSubmatchIndex(text, maxMatches) {
        row := map[string]string{}
        for gi := 1; gi < len(names); gi++ {
            name := names[gi]
            if name == "" { continue }
            s, e := idx[2*gi], idx[2*gi+1]
            if s >= 0 && e >= 0 && s <= e && e <= len(text) {
                row[name] = text[s:e]
            }
        }
        rows = append(rows, row)
    }
    return rows, nil
}

func compile(pattern string) (*regexp.Regexp, error) {
    if strings.TrimSpace(pattern) == "" { return nil, fmt.Errorf("missing pattern") }
    return regexp.Compile(pattern)
}
