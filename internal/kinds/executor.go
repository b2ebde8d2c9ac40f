package kinds

import (
    "context"
    "errors"
    "fmt"

    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/store"
)

// MaxRefix bounds how many extra fix rounds an executor may request after a
// kind-specific post-condition fails.
const MaxRefix = 2

// PostCondition inspects the store after a step ran.
type PostCondition func(s *store.Store, step models.Step) error

// verifier is the executor behind every built-in kind: it re-checks the
// step's contract keys, then the kind-specific condition, and asks for a fix
// when either fails.
type verifier struct {
    store    *store.Store
    contract func(models.Step) []string
    check    PostCondition
}

func newVerifier(contract func(models.Step) []string, check PostCondition) ExecutorFactory {
    return func(s *store.Store) Executor { return &verifier{store: s, contract: contract, check: check} }
}

func (v *verifier) Execute(ctx context.Context, step models.Step, art *models.Artifact, fix Fixer) error {
    var lastErr error
    for round := 0; ; round++ {
        lastErr = v.verify(step)
        if lastErr == nil {
            if art != nil { art.Satisfied = true }
            return nil
        }
        if round == MaxRefix || fix == nil { break }
        next, err := fix(ctx, lastErr)
        if err != nil { return err }
        if next != nil { art = next }
    }
    var ce *models.CodeExecutionError
    msg := lastErr.Error()
    if errors.As(lastErr, &ce) { msg = ce.Message }
    return &models.StepExecutionExhaustedError{Step: step.SequenceNumber, Attempts: MaxRefix + 1, LastError: msg}
}

func (v *verifier) verify(step models.Step) error {
    for _, k := range v.contract(step) {
        if !v.store.Has(k) {
            return &models.CodeExecutionError{Message: fmt.Sprintf("post-condition: key %q was not added to the store", k)}
        }
    }
    if v.check == nil { return nil }
    if err := v.check(v.store, step); err != nil {
        return &models.CodeExecutionError{Message: "post-condition: " + err.Error()}
    }
    return nil
}

func producedKeys(step models.Step) []string { return step.ProducedData }

// nonNilProduced fails when any produced key holds nil.
func nonNilProduced(s *store.Store, step models.Step) error {
    for _, k := range step.ProducedData {
        v, err := s.Get(k)
        if err != nil { return err }
        if v == nil { return fmt.Errorf("key %q holds nil", k) }
    }
    return nil
}
