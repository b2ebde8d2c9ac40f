// Package interpreter runs generated step programs in an embedded Go
// interpreter with a restricted import set.
package interpreter

import (
    "bytes"
    "context"
    "errors"
    "fmt"
    "reflect"
    "sort"
    "sync"
    "time"

    "github.com/traefik/yaegi/interp"
    "go.uber.org/zap"

    "github.com/example/blueprint-engine/internal/models"
)

const EntryPoint = "main.Run"

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type Interpreter struct {
    Stdlib  []string
    Timeout time.Duration
    Log     *zap.Logger
}

// New returns an interpreter limited to DefaultStdlib.
func New(timeout time.Duration, log *zap.Logger) *Interpreter {
    if log == nil { log = zap.NewNop() }
    return &Interpreter{Stdlib: DefaultStdlib, Timeout: timeout, Log: log}
}

// Result is what one run produced.
type Result struct {
    Stdout string
    Value  any
}

// Allowed lists every import path a program may use given ns.
func (r *Interpreter) Allowed(ns Namespace) []string {
    out := append([]string(nil), r.Stdlib...)
    for p := range ns { out = append(out, p) }
    sort.Strings(out)
    return out
}

// Run evaluates src and calls its Run function. Panics, timeouts and
// returned errors become CodeExecutionError carrying captured stdout.
func (r *Interpreter) Run(ctx context.Context, src string, ns Namespace) (Result, error) {
    if r.Timeout > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, r.Timeout)
        defer cancel()
    }
    out := &lockedBuffer{}
    i := interp.New(interp.Options{Stdout: out, Stderr: out})
    if err := i.Use(stdlibSubset(r.Stdlib)); err != nil { return Result{}, err }
    if err := i.Use(ns.exports()); err != nil { return Result{}, err }

    type outcome struct {
        val any
        err error
    }
    done := make(chan outcome, 1)
    start := time.Now()
    go func() {
        defer func() {
            if p := recover(); p != nil { done <- outcome{err: fmt.Errorf("panic: %v", p)} }
        }()
        v, err := r.eval(ctx, i, src)
        done <- outcome{val: v, err: err}
    }()

    var res outcome
    select {
    case res = <-done:
    case <-ctx.Done():
        res.err = ctx.Err()
    }
    if errors.Is(res.err, context.DeadlineExceeded) { res.err = fmt.Errorf("timed out after %s", r.Timeout) }
    stdout := out.String()
    r.Log.Debug("program finished", zap.Duration("took", time.Since(start)), zap.Int("stdout_bytes", len(stdout)), zap.Error(res.err))
    if res.err != nil {
        if errors.Is(res.err, context.Canceled) { return Result{Stdout: stdout}, res.err }
        return Result{Stdout: stdout}, &models.CodeExecutionError{Message: res.err.Error(), Stdout: stdout}
    }
    return Result{Stdout: stdout, Value: res.val}, nil
}

// valueEntry wraps a two-result Run so the call goes through EvalWithContext.
const valueEntry = `func runEntry() error {
    v, err := Run()
    runEntryValue = v
    return err
}

var runEntryValue any`

func (r *Interpreter) eval(ctx context.Context, i *interp.Interpreter, src string) (any, error) {
    if _, err := i.EvalWithContext(ctx, src); err != nil { return nil, err }
    v, err := i.EvalWithContext(ctx, EntryPoint)
    if err != nil { return nil, fmt.Errorf("entry point: %w", err) }
    if v.Kind() != reflect.Func || v.Type().NumIn() != 0 || v.Type().NumOut() == 0 || v.Type().NumOut() > 2 {
        return nil, fmt.Errorf("entry point Run has type %s, want func() error", v.Type())
    }
    if !v.Type().Out(v.Type().NumOut() - 1).Implements(errorType) {
        return nil, fmt.Errorf("entry point Run must return error last, has type %s", v.Type())
    }
    withValue := v.Type().NumOut() == 2
    call := EntryPoint + "()"
    if withValue {
        if _, err := i.EvalWithContext(ctx, valueEntry); err != nil { return nil, fmt.Errorf("entry point: %w", err) }
        call = "main.runEntry()"
    }
    res, err := i.EvalWithContext(ctx, call)
    if err != nil { return nil, err }
    if err := resultError(res); err != nil { return nil, err }
    if !withValue { return nil, nil }
    val, err := i.EvalWithContext(ctx, "main.runEntryValue")
    if err != nil || !val.IsValid() || !val.CanInterface() { return nil, err }
    return val.Interface(), nil
}

func resultError(v reflect.Value) error {
    if !v.IsValid() || !v.CanInterface() { return nil }
    switch v.Kind() {
    case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
        if v.IsNil() { return nil }
    }
    x := v.Interface()
    if x == nil { return nil }
    if err, ok := x.(error); ok { return err }
    return fmt.Errorf("%v", x)
}

type lockedBuffer struct {
    mu  sync.Mutex
    buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
    b.mu.Lock()
    defer b.mu.Unlock()
    return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
    b.mu.Lock()
    defer b.mu.Unlock()
    return b.buf.String()
}
