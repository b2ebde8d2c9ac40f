package agents

import (
    "fmt"
    "strings"

    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/store"
)

// VerifyContract is the post-condition every successful run must meet: each
// contract key now exists in the store.
func VerifyContract(s *store.Store, keys []string) error {
    var missing []string
    for _, k := range keys {
        if !s.Has(k) { missing = append(missing, fmt.Sprintf("%q", k)) }
    }
    if len(missing) == 0 { return nil }
    return &models.CodeExecutionError{Message: "post-condition: program finished without adding " + strings.Join(missing, ", ")}
}
