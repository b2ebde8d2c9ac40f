package interpreter

import (
    "path"
    "reflect"

    "github.com/traefik/yaegi/interp"
    "github.com/traefik/yaegi/stdlib"

    "github.com/example/blueprint-engine/internal/store"
)

const (
    StorePath = "blueprint/store"
    ToolsPath = "blueprint/tools"
)

// DefaultStdlib is the standard library subset generated programs may import.
var DefaultStdlib = []string{
    "bytes", "encoding/csv", "encoding/json", "errors", "fmt", "math", "math/rand",
    "regexp", "sort", "strconv", "strings", "time", "unicode",
}

// Namespace maps an import path to the symbols it exports.
type Namespace map[string]map[string]reflect.Value

func (n Namespace) exports() interp.Exports {
    out := make(interp.Exports, len(n))
    for p, syms := range n { out[p+"/"+path.Base(p)] = syms }
    return out
}

// StoreSymbols exposes s to generated code as package store.
func StoreSymbols(s *store.Store) map[string]reflect.Value {
    return map[string]reflect.Value{
        "Get":     reflect.ValueOf(s.Get),
        "Has":     reflect.ValueOf(s.Has),
        "Keys":    reflect.ValueOf(s.Keys),
        "Add":     reflect.ValueOf(s.Add),
        "Set":     reflect.ValueOf(s.Set),
        "Remove":  reflect.ValueOf(s.Remove),
        "Summary": reflect.ValueOf(func(key string) string {
            if d, ok := s.Describe(key); ok { return d }
            return ""
        }),
    }
}

// stdlibSubset filters yaegi's stdlib table down to the allowed paths.
func stdlibSubset(allowed []string) interp.Exports {
    out := interp.Exports{}
    for _, p := range allowed {
        key := p + "/" + path.Base(p)
        if syms, ok := stdlib.Symbols[key]; ok { out[key] = syms }
    }
    return out
}
