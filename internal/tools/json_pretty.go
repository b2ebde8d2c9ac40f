package tools

import (
    "encoding/json"
    "fmt"
    "strings"
)

// PrettyJSON validates raw and returns it indented.
func PrettyJSON(raw string) (string, error) {
    v, err := ParseJSON(raw)
    if err != nil { return "", err }
    out, err := json.MarshalIndent(v, "", "  ")
    if err != nil { return "", err }
    return string(out), nil
}

// ParseJSON decodes raw into generic maps, slices and float64s.
func ParseJSON(raw string) (any, error) {
    if strings.TrimSpace(raw) == "" { return nil, fmt.Errorf("missing json") }
    var v any
    if err := json.Unmarshal([]byte(raw), &v); err != nil { return nil, fmt.Errorf("invalid json: %w", err) }
    return v, nil
}
