package store

import (
    "reflect"
    "sort"
    "strings"
    "sync"

    "github.com/example/blueprint-engine/internal/models"
)

// Reserved keys for the bootstrap bindings installed on every Clear.
const (
    KeyModel       = "llm_client"
    KeySummarizer  = "data_summarizer"
    KeyInterpreter = "code_runner"
)

const summarySuffix = "_summary"

// SummaryKey returns the key under which the summary of key is kept.
func SummaryKey(key string) string { return key + summarySuffix }

// Store is the keyed namespace steps use to exchange artifacts. Every method
// holds the same lock; generated code calls into it from interpreter goroutines.
type Store struct {
    mu         sync.Mutex
    entries    map[string]any
    bootstrap  map[string]any
    summarizer Summarizer
}

// New builds a store and installs the bootstrap bindings. A nil summarizer
// falls back to DefaultSummarizer.
func New(summarizer Summarizer, bootstrap map[string]any) *Store {
    if summarizer == nil { summarizer = DefaultSummarizer{} }
    b := make(map[string]any, len(bootstrap)+1)
    for k, v := range bootstrap { b[k] = v }
    if _, ok := b[KeySummarizer]; !ok { b[KeySummarizer] = summarizer }
    s := &Store{bootstrap: b, summarizer: summarizer}
    s.Clear()
    return s
}

// Bind adds or replaces a bootstrap binding. It is visible immediately and
// survives every later Clear.
func (s *Store) Bind(key string, v any) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.bootstrap[key] = v
    s.entries[key] = v
}

// Add stores value under key. It fails with DuplicateKeyError if key exists.
func (s *Store) Add(key string, value any) error {
    summary, hasSummary := s.summarize(value)
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.entries[key]; ok {
        return &models.DuplicateKeyError{Key: key}
    }
    s.entries[key] = value
    if hasSummary { s.entries[SummaryKey(key)] = summary }
    return nil
}

// Set always overwrites and replaces (or drops) the summary.
func (s *Store) Set(key string, value any) {
    summary, hasSummary := s.summarize(value)
    s.mu.Lock()
    defer s.mu.Unlock()
    s.entries[key] = value
    delete(s.entries, SummaryKey(key))
    if hasSummary { s.entries[SummaryKey(key)] = summary }
}

func (s *Store) Get(key string) (any, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    v, ok := s.entries[key]
    if !ok { return nil, &models.MissingKeyError{Key: key} }
    return v, nil
}

func (s *Store) Has(key string) bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    _, ok := s.entries[key]
    return ok
}

// Remove deletes key and its summary.
func (s *Store) Remove(key string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.entries[key]; !ok {
        return &models.MissingKeyError{Key: key}
    }
    delete(s.entries, key)
    delete(s.entries, SummaryKey(key))
    return nil
}

// Discard removes keys that exist and ignores the rest.
func (s *Store) Discard(keys ...string) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, k := range keys {
        if _, reserved := s.bootstrap[k]; reserved { continue }
        delete(s.entries, k)
        delete(s.entries, SummaryKey(k))
    }
}

// Clear wipes every entry and re-installs the bootstrap bindings.
func (s *Store) Clear() {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.entries = make(map[string]any, len(s.bootstrap)+16)
    for k, v := range s.bootstrap { s.entries[k] = v }
}

// Summary returns the stored summary for key, if any.
func (s *Store) Summary(key string) (string, bool) {
    s.mu.Lock()
    defer s.mu.Unlock()
    v, ok := s.entries[SummaryKey(key)]
    if !ok { return "", false }
    str, ok := v.(string)
    return str, ok
}

// Describe returns a prompt-ready description of key: its summary for
// non-primitive values, the value itself for primitives.
func (s *Store) Describe(key string) (string, bool) {
    if sum, ok := s.Summary(key); ok { return sum, true }
    v, err := s.Get(key)
    if err != nil { return "", false }
    return s.summarizer.Summarize(v), true
}

// Keys lists user keys in sorted order; bootstrap bindings and summaries are
// left out.
func (s *Store) Keys() []string {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]string, 0, len(s.entries))
    for k := range s.entries {
        if _, reserved := s.bootstrap[k]; reserved { continue }
        if strings.HasSuffix(k, summarySuffix) {
            if _, ok := s.entries[strings.TrimSuffix(k, summarySuffix)]; ok { continue }
        }
        out = append(out, k)
    }
    sort.Strings(out)
    return out
}

// Reserved reports whether key is a bootstrap binding.
func (s *Store) Reserved(key string) bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    _, ok := s.bootstrap[key]
    return ok
}

func (s *Store) Summarizer() Summarizer { return s.summarizer }

func (s *Store) summarize(v any) (string, bool) {
    if IsPrimitive(v) { return "", false }
    return s.summarizer.Summarize(v), true
}

// IsPrimitive reports whether v is a string, bool or numeric scalar (complex
// included). Nil counts as primitive.
func IsPrimitive(v any) bool {
    if v == nil { return true }
    switch reflect.TypeOf(v).Kind() {
    case reflect.String, reflect.Bool,
        reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
        reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
        reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
        return true
    }
    return false
}

// ReservedKeys lists the bootstrap names known at compile time.
func ReservedKeys() []string {
    return []string{KeyModel, KeySummarizer, KeyInterpreter}
}
