package agents

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "go.uber.org/zap"

    "github.com/example/blueprint-engine/internal/interpreter"
    "github.com/example/blueprint-engine/internal/kinds"
    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/prompts"
    "github.com/example/blueprint-engine/internal/providers/llm"
    "github.com/example/blueprint-engine/internal/store"
    "github.com/example/blueprint-engine/internal/tools"
)

// CodeRunner executes a program against a namespace.
type CodeRunner interface {
    Run(ctx context.Context, src string, ns interpreter.Namespace) (interpreter.Result, error)
    Allowed(ns interpreter.Namespace) []string
}

type State string

const (
    StateGenerate State = "generate"
    StateCheck    State = "check"
    StateExecute  State = "execute"
    StateFix      State = "fix"
    StateDone     State = "done"
    StateFatal    State = "fatal"
)

// Job is one step handed to the synthesis loop.
type Job struct {
    Query string
    Step  models.Step
    Gen   kinds.CodeGenerator
    Bound int
    Prior *models.Artifact
}

// Session is the inspectable state of one synthesis run.
type Session struct {
    Job      Job
    Contract []string
    Allowed  []string
    State    State
    Source   string
    Attempts int
    Fixes    int
    LastErr  error
    // CodeErr is the last Check or Execute failure; fix requests quote it.
    CodeErr  error
    Trace    []State
}

func (s *Session) enter(st State) {
    s.State = st
    s.Trace = append(s.Trace, st)
}

// CodeSynthesisLoop turns a step into a verified program:
// Generate, Check, Execute, then Fix and back to Check until the program
// satisfies its contract or Bound attempts have failed.
type CodeSynthesisLoop struct {
    Model            llm.LanguageModel
    Store            *store.Store
    Runner           CodeRunner
    Tools            *tools.Catalog
    GenerateAttempts int
    Log              *zap.Logger
}

// Synthesize runs the loop for job. A prior artifact for an unchanged step is
// reused instead of generating new code.
func (l *CodeSynthesisLoop) Synthesize(ctx context.Context, job Job, emit models.Emitter) (*models.Artifact, *Session, error) {
    sess := l.newSession(ctx, job, emit)
    if job.Prior != nil && job.Prior.Source != "" && !job.Step.Changed {
        sess.Source = job.Prior.Source
        emit.Send(models.EventMessage, job.Step.SequenceNumber, "reusing stored program")
        sess.enter(StateCheck)
    } else {
        sess.enter(StateGenerate)
    }
    art, err := l.drive(ctx, sess, emit)
    return art, sess, err
}

// Repair restarts the loop at Fix for a program that ran but was rejected
// later, with a fresh attempt budget.
func (l *CodeSynthesisLoop) Repair(ctx context.Context, job Job, source string, cause error, emit models.Emitter) (*models.Artifact, *Session, error) {
    sess := l.newSession(ctx, job, emit)
    sess.Source = source
    sess.LastErr = cause
    sess.CodeErr = cause
    sess.Attempts = 1
    sess.enter(StateFix)
    art, err := l.drive(ctx, sess, emit)
    return art, sess, err
}

func (l *CodeSynthesisLoop) newSession(ctx context.Context, job Job, emit models.Emitter) *Session {
    if job.Bound <= 0 { job.Bound = kinds.DefaultFixBound }
    return &Session{Job: job, Contract: job.Gen.Contract(), Allowed: l.Runner.Allowed(l.namespace(ctx, job.Step, emit))}
}

func (l *CodeSynthesisLoop) drive(ctx context.Context, sess *Session, emit models.Emitter) (*models.Artifact, error) {
    seq := sess.Job.Step.SequenceNumber
    log := l.logger().With(zap.Int("step", seq), zap.String("kind", sess.Job.Step.Kind))
    for {
        if err := ctx.Err(); err != nil { return nil, err }
        switch sess.State {
        case StateGenerate:
            src, err := l.generate(ctx, sess, emit)
            if err != nil {
                if ctx.Err() != nil { return nil, ctx.Err() }
                sess.Attempts = l.generateTries()
                sess.LastErr = err
                sess.enter(StateFatal)
                continue
            }
            sess.Source = src
            sess.enter(StateCheck)

        case StateCheck:
            if err := interpreter.Check(sess.Source, sess.Contract, sess.Allowed); err != nil {
                sess.CodeErr = err
                l.fail(sess, err, emit, log)
                continue
            }
            sess.enter(StateExecute)

        case StateExecute:
            l.Store.Discard(sess.Contract...)
            emit.Send(models.EventMessage, seq, fmt.Sprintf("executing (attempt %d/%d)", sess.Attempts+1, sess.Job.Bound))
            res, err := l.Runner.Run(ctx, sess.Source, l.namespace(ctx, sess.Job.Step, emit))
            if err == nil { err = VerifyContract(l.Store, sess.Contract) }
            if err != nil {
                if errors.Is(err, context.Canceled) && ctx.Err() != nil { return nil, ctx.Err() }
                sess.CodeErr = err
                l.fail(sess, err, emit, log)
                continue
            }
            sess.Attempts++
            if out := strings.TrimSpace(res.Stdout); out != "" { emit.Send(models.EventMessage, seq, out) }
            sess.enter(StateDone)

        case StateFix:
            if err := l.fix(ctx, sess, emit); err != nil {
                if ctx.Err() != nil { return nil, ctx.Err() }
                l.fail(sess, err, emit, log)
                continue
            }
            sess.enter(StateCheck)

        case StateDone:
            log.Info("step program ready", zap.Int("attempts", sess.Attempts), zap.Int("fixes", sess.Fixes))
            return &models.Artifact{
                SequenceNumber: seq,
                Source:         sess.Source,
                Satisfied:      true,
                Attempts:       sess.Attempts,
                UpdatedAt:      time.Now().UTC(),
            }, nil

        case StateFatal:
            last := "unknown error"
            if sess.LastErr != nil { last = sess.LastErr.Error() }
            log.Error("step synthesis exhausted", zap.Int("attempts", sess.Attempts), zap.String("last_error", last))
            return nil, &models.StepExecutionExhaustedError{Step: seq, Attempts: sess.Attempts, LastError: last}
        }
    }
}

// fail records a failed attempt and moves to Fix, or to Fatal once the
// bound is reached.
func (l *CodeSynthesisLoop) fail(sess *Session, err error, emit models.Emitter, log *zap.Logger) {
    sess.Attempts++
    sess.LastErr = err
    log.Warn("step attempt failed", zap.Int("attempt", sess.Attempts), zap.Error(err))
    emit.Send(models.EventError, sess.Job.Step.SequenceNumber, fmt.Sprintf("attempt %d/%d: %s", sess.Attempts, sess.Job.Bound, err))
    if sess.Attempts >= sess.Job.Bound {
        sess.enter(StateFatal)
        return
    }
    sess.enter(StateFix)
}

func (l *CodeSynthesisLoop) generate(ctx context.Context, sess *Session, emit models.Emitter) (string, error) {
    step := sess.Job.Step
    prompt := sess.Job.Gen.Prompt(sess.Job.Query, l.summaries(step.RequiredData), sess.Allowed)
    tries := l.generateTries()
    var lastErr error
    for i := 0; i < tries; i++ {
        reply, err := l.Model.Complete(ctx, prompt, emit.Stream(models.EventCode, step.SequenceNumber))
        if err != nil {
            if ctx.Err() != nil { return "", ctx.Err() }
            lastErr = err
            continue
        }
        if src := interpreter.ExtractSource(reply); src != "" {
            emit.Send(models.EventCode, step.SequenceNumber, src)
            return src, nil
        }
        lastErr = errors.New("model reply contained no program")
    }
    return "", fmt.Errorf("code generation failed after %d tries: %w", tries, lastErr)
}

func (l *CodeSynthesisLoop) generateTries() int {
    if l.GenerateAttempts > 0 { return l.GenerateAttempts }
    return 3
}

func (l *CodeSynthesisLoop) fix(ctx context.Context, sess *Session, emit models.Emitter) error {
    sess.Fixes++
    step := sess.Job.Step
    cause := sess.CodeErr
    if cause == nil { cause = sess.LastErr }
    failure := cause.Error()
    prompt := prompts.Fix(step, sess.Source, failure, sess.Contract, sess.Allowed)
    reply, err := l.Model.Complete(ctx, prompt, emit.Stream(models.EventCode, step.SequenceNumber))
    if err != nil { return fmt.Errorf("fix request: %w", err) }
    src := interpreter.ExtractSource(reply)
    if src == "" { return errors.New("fix reply contained no program") }
    sess.Source = src
    emit.Send(models.EventCode, step.SequenceNumber, src)
    return nil
}

// summaries describes each required key; a missing one degrades to a
// placeholder.
func (l *CodeSynthesisLoop) summaries(keys []string) []prompts.DataSummary {
    out := make([]prompts.DataSummary, 0, len(keys))
    for _, k := range keys {
        d, ok := l.Store.Describe(k)
        if !ok { d = prompts.SummaryUnavailable }
        out = append(out, prompts.DataSummary{Key: k, Summary: d})
    }
    return out
}

func (l *CodeSynthesisLoop) namespace(ctx context.Context, step models.Step, emit models.Emitter) interpreter.Namespace {
    ns := interpreter.Namespace{interpreter.StorePath: interpreter.StoreSymbols(l.Store)}
    if l.Tools != nil {
        cb := emit.Stream(models.EventMessage, step.SequenceNumber)
        if cb != nil { ctx = tools.WithTokenCallback(ctx, tools.TokenCallback(cb)) }
        ns[interpreter.ToolsPath] = l.Tools.Symbols(ctx)
    }
    return ns
}

func (l *CodeSynthesisLoop) logger() *zap.Logger {
    if l.Log == nil { return zap.NewNop() }
    return l.Log
}
