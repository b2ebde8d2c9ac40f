package store

import (
    "fmt"
    "reflect"
    "sort"
    "strings"
    "time"
)

// Summarizer describes a value compactly enough to put in a prompt.
type Summarizer interface {
    Summarize(v any) string
}

// DefaultSummarizer reports type, shape and a small sample, plus basic
// statistics for numeric sequences.
type DefaultSummarizer struct {
    MaxSample int
    MaxDepth  int
    MaxChars  int
}

func (d DefaultSummarizer) withDefaults() DefaultSummarizer {
    if d.MaxSample <= 0 { d.MaxSample = 10 }
    if d.MaxDepth <= 0 { d.MaxDepth = 3 }
    if d.MaxChars <= 0 { d.MaxChars = 1000 }
    return d
}

func (d DefaultSummarizer) Summarize(v any) string {
    d = d.withDefaults()
    if v == nil { return "type: nil" }
    switch t := v.(type) {
    case time.Time:
        return fmt.Sprintf("type: time.Time\nvalue: %s", t.Format(time.RFC3339))
    case []byte:
        return fmt.Sprintf("type: []byte\nlength: %d\nsample: %s", len(t), d.clip(string(t)))
    case []map[string]string:
        rows := make([]map[string]any, len(t))
        for i, r := range t {
            m := make(map[string]any, len(r))
            for k, v := range r { m[k] = v }
            rows[i] = m
        }
        return d.table(fmt.Sprintf("%T", v), rows)
    case []map[string]any:
        return d.table(fmt.Sprintf("%T", v), t)
    case [][]string:
        return d.grid(t)
    case error:
        return fmt.Sprintf("type: error\nmessage: %s", d.clip(t.Error()))
    }
    rv := reflect.ValueOf(v)
    switch rv.Kind() {
    case reflect.Map:
        var b strings.Builder
        fmt.Fprintf(&b, "type: %s\nkeys: %d\nschema:\n", rv.Type(), rv.Len())
        b.WriteString(d.schema(rv, 0))
        return b.String()
    case reflect.Slice, reflect.Array:
        return d.sequence(rv)
    case reflect.Struct:
        var b strings.Builder
        fmt.Fprintf(&b, "type: %s\nfields:\n", rv.Type())
        b.WriteString(d.schema(rv, 0))
        return b.String()
    case reflect.Ptr, reflect.Interface:
        if rv.IsNil() { return fmt.Sprintf("type: %s\nvalue: nil", rv.Type()) }
        return d.Summarize(rv.Elem().Interface())
    case reflect.Func:
        return fmt.Sprintf("type: func\nsignature: %s", rv.Type())
    }
    return fmt.Sprintf("type: %T\nsample: %s", v, d.clip(fmt.Sprintf("%v", v)))
}

func (d DefaultSummarizer) sequence(rv reflect.Value) string {
    var b strings.Builder
    n := rv.Len()
    fmt.Fprintf(&b, "type: %s\nlength: %d\n", rv.Type(), n)
    show := n
    if show > d.MaxSample { show = d.MaxSample }
    sample := make([]string, 0, show)
    for i := 0; i < show; i++ {
        sample = append(sample, fmt.Sprintf("%v", rv.Index(i).Interface()))
    }
    fmt.Fprintf(&b, "sample (first %d): [%s]\n", show, d.clip(strings.Join(sample, ", ")))
    if nums, ok := numbers(rv); ok && len(nums) > 0 {
        min, max, mean, median := stats(nums)
        fmt.Fprintf(&b, "stats: min=%g max=%g mean=%g median=%g\n", min, max, mean, median)
    }
    if n > 0 {
        first := rv.Index(0)
        if first.Kind() == reflect.Interface && !first.IsNil() { first = first.Elem() }
        if first.Kind() == reflect.Map || first.Kind() == reflect.Struct {
            b.WriteString("element schema:\n")
            b.WriteString(d.schema(first, 0))
        }
    }
    return strings.TrimRight(b.String(), "\n")
}

func (d DefaultSummarizer) table(typ string, rows []map[string]any) string {
    cols := map[string]struct{}{}
    for _, r := range rows { for k := range r { cols[k] = struct{}{} } }
    names := make([]string, 0, len(cols))
    for k := range cols { names = append(names, k) }
    sort.Strings(names)
    var b strings.Builder
    fmt.Fprintf(&b, "type: %s (table)\nrows: %d\ncolumns: %s\n", typ, len(rows), strings.Join(names, ", "))
    show := len(rows)
    if show > 5 { show = 5 }
    fmt.Fprintf(&b, "sample (first %d rows):\n", show)
    for _, r := range rows[:show] {
        cells := make([]string, 0, len(names))
        for _, c := range names { cells = append(cells, fmt.Sprintf("%s=%v", c, r[c])) }
        b.WriteString("  " + d.clip(strings.Join(cells, ", ")) + "\n")
    }
    return strings.TrimRight(b.String(), "\n")
}

func (d DefaultSummarizer) grid(rows [][]string) string {
    var b strings.Builder
    cols := 0
    for _, r := range rows { if len(r) > cols { cols = len(r) } }
    fmt.Fprintf(&b, "type: [][]string (grid)\nrows: %d\ncolumns: %d\n", len(rows), cols)
    show := len(rows)
    if show > 5 { show = 5 }
    fmt.Fprintf(&b, "sample (first %d rows):\n", show)
    for _, r := range rows[:show] { b.WriteString("  " + d.clip(strings.Join(r, " | ")) + "\n") }
    return strings.TrimRight(b.String(), "\n")
}

func (d DefaultSummarizer) schema(rv reflect.Value, depth int) string {
    indent := strings.Repeat("  ", depth+1)
    if depth >= d.MaxDepth { return indent + "...\n" }
    var b strings.Builder
    switch rv.Kind() {
    case reflect.Map:
        keys := rv.MapKeys()
        sort.Slice(keys, func(i, j int) bool { return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface()) })
        limit := d.MaxSample * 5
        for i, k := range keys {
            if i >= limit { b.WriteString(indent + "...\n"); break }
            d.field(&b, indent, fmt.Sprint(k.Interface()), rv.MapIndex(k), depth)
        }
    case reflect.Struct:
        t := rv.Type()
        for i := 0; i < rv.NumField(); i++ {
            if !t.Field(i).IsExported() { continue }
            d.field(&b, indent, t.Field(i).Name, rv.Field(i), depth)
        }
    }
    return b.String()
}

func (d DefaultSummarizer) field(b *strings.Builder, indent, name string, v reflect.Value, depth int) {
    if v.Kind() == reflect.Interface && !v.IsNil() { v = v.Elem() }
    switch v.Kind() {
    case reflect.Map, reflect.Struct:
        if _, isTime := v.Interface().(time.Time); isTime { break }
        fmt.Fprintf(b, "%s%s: %s\n", indent, name, v.Type())
        b.WriteString(d.schema(v, depth+1))
        return
    case reflect.Invalid:
        fmt.Fprintf(b, "%s%s: nil\n", indent, name)
        return
    }
    fmt.Fprintf(b, "%s%s: %s\n", indent, name, v.Type())
}

func (d DefaultSummarizer) clip(s string) string {
    if len(s) <= d.MaxChars { return s }
    return s[:d.MaxChars] + "..."
}

func numbers(rv reflect.Value) ([]float64, bool) {
    out := make([]float64, 0, rv.Len())
    for i := 0; i < rv.Len(); i++ {
        e := rv.Index(i)
        if e.Kind() == reflect.Interface { e = e.Elem() }
        switch e.Kind() {
        case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
            out = append(out, float64(e.Int()))
        case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
            out = append(out, float64(e.Uint()))
        case reflect.Float32, reflect.Float64:
            out = append(out, e.Float())
        default:
            return nil, false
        }
    }
    return out, true
}

func stats(nums []float64) (min, max, mean, median float64) {
    sorted := append([]float64(nil), nums...)
    sort.Float64s(sorted)
    min, max = sorted[0], sorted[len(sorted)-1]
    var sum float64
    for _, n := range sorted { sum += n }
    mean = sum / float64(len(sorted))
    mid := len(sorted) / 2
    if len(sorted)%2 == 0 {
        median = (sorted[mid-1] + sorted[mid]) / 2
    } else {
        median = sorted[mid]
    }
    return
}
