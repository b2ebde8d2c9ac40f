package models

import (
    "errors"
    "fmt"
    "strings"
)

// PlanParseError means the model reply held no parseable plan.
type PlanParseError struct {
    Reason string
    Raw    string
}

func (e *PlanParseError) Error() string {
    return "plan parse: " + e.Reason
}

// StepValidationError means a plan entry broke its kind's contract.
type StepValidationError struct {
    Index  int
    Kind   string
    Reason string
}

func (e *StepValidationError) Error() string {
    return fmt.Sprintf("plan entry %d (%s): %s", e.Index+1, e.Kind, e.Reason)
}

type UnknownStepKindError struct{ Kind string }

func (e *UnknownStepKindError) Error() string {
    return fmt.Sprintf("unknown step kind %q", e.Kind)
}

// CodeCheckError lists every static contract violation found in a source.
type CodeCheckError struct{ Problems []string }

func (e *CodeCheckError) Error() string {
    return "code check failed: " + strings.Join(e.Problems, "; ")
}

type CodeExecutionError struct {
    Message string
    Stdout  string
}

func (e *CodeExecutionError) Error() string {
    if e.Stdout == "" { return "code execution failed: " + e.Message }
    return fmt.Sprintf("code execution failed: %s\nstdout:\n%s", e.Message, e.Stdout)
}

type StepExecutionExhaustedError struct {
    Step      int
    Attempts  int
    LastError string
}

func (e *StepExecutionExhaustedError) Error() string {
    return fmt.Sprintf("step %d failed after %d attempts: %s", e.Step, e.Attempts, e.LastError)
}

type PlanBuildExhaustedError struct {
    Attempts  int
    LastError string
}

func (e *PlanBuildExhaustedError) Error() string {
    return fmt.Sprintf("plan build failed after %d attempts: %s", e.Attempts, e.LastError)
}

type DuplicateKeyError struct{ Key string }

func (e *DuplicateKeyError) Error() string {
    return fmt.Sprintf("key %q already exists; use Set to overwrite", e.Key)
}

type MissingKeyError struct{ Key string }

func (e *MissingKeyError) Error() string {
    return fmt.Sprintf("key %q not found", e.Key)
}

// InvalidPositionError reports a position outside 1..Max.
type InvalidPositionError struct {
    Position int
    Max      int
}

func (e *InvalidPositionError) Error() string {
    if e.Max < 1 { return fmt.Sprintf("invalid position %d (collection is empty)", e.Position) }
    return fmt.Sprintf("invalid position %d (valid range 1..%d)", e.Position, e.Max)
}

// Recoverable reports whether err can be repaired by another model round
// instead of aborting the run.
func Recoverable(err error) bool {
    var (
        pp *PlanParseError
        sv *StepValidationError
        cc *CodeCheckError
        ce *CodeExecutionError
        dk *DuplicateKeyError
        mk *MissingKeyError
    )
    return errors.As(err, &pp) || errors.As(err, &sv) || errors.As(err, &cc) ||
        errors.As(err, &ce) || errors.As(err, &dk) || errors.As(err, &mk)
}
