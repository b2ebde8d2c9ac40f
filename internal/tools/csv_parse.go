package tools

import (
    "encoding/csv"
    "errors"
    "fmt"
    "io"
    "strings"
)

// ParseCSV converts CSV text with a header row into row objects. Ragged rows
// are padded with empty strings.
func ParseCSV(raw string) ([]map[string]string, error) {
    return parseCSV(raw, ',')
}

// ParseDelimited is ParseCSV with a custom single-character delimiter.
func ParseDelimited(raw, delimiter string) ([]map[string]string, error) {
    r := []rune(delimiter)
    if len(r) != 1 { return nil, fmt.Errorf("delimiter must be a single character") }
    return parseCSV(raw, r[0])
}

func parseCSV(raw string, comma rune) ([]map[string]string, error) {
    out := make([]map[string]string, 0, 64)
    if strings.TrimSpace(raw) == "" { return out, nil }
    rdr := csv.NewReader(strings.NewReader(raw))
    rdr.FieldsPerRecord = -1
    rdr.Comma = comma

    headers, err := rdr.Read()
    if err != nil { return nil, err }
    for i := range headers {
        headers[i] = strings.TrimSpace(headers[i])
        if headers[i] == "" { headers[i] = fmt.Sprintf("c%d", i+1) }
    }
    for {
        rec, err := rdr.Read()
        if err != nil {
            if errors.Is(err, io.EOF) { break }
            return out, err
        }
        row := make(map[string]string, len(headers))
        for i := range headers {
            var v string
            if i < len(rec) { v = rec[i] }
            row[headers[i]] = v
        }
        out = append(out, row)
    }
    return out, nil
}
