package agents

import (
    "context"
    "errors"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/example/blueprint-engine/internal/blueprint"
    "github.com/example/blueprint-engine/internal/interpreter"
    "github.com/example/blueprint-engine/internal/kinds"
    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/prompts"
    "github.com/example/blueprint-engine/internal/providers/llm"
    "github.com/example/blueprint-engine/internal/store"
)

const addsX = `package main

import "blueprint/store"

func Run() error {
    return store.Add("x", 42)
}
`

// skipsX passes the static check but never adds the key.
const skipsX = `package main

import "blueprint/store"

func Run() error {
    if len("") > 0 {
        return store.Add("x", 1)
    }
    return nil
}
`

const noImport = `package main

func Run() error { return nil }
`

func fenced(src string) string { return "```go\n" + src + "```" }

type countingRunner struct {
    *interpreter.Interpreter
    mu    sync.Mutex
    calls int
}

func (r *countingRunner) Run(ctx context.Context, src string, ns interpreter.Namespace) (interpreter.Result, error) {
    r.mu.Lock()
    r.calls++
    r.mu.Unlock()
    return r.Interpreter.Run(ctx, src, ns)
}

type recorder struct {
    mu     sync.Mutex
    events []models.Event
}

func (r *recorder) emit(e models.Event) {
    r.mu.Lock()
    r.events = append(r.events, e)
    r.mu.Unlock()
}

func (r *recorder) final(t models.EventType) []string {
    r.mu.Lock()
    defer r.mu.Unlock()
    var out []string
    for _, e := range r.events {
        if e.Type == t && !e.Chunk { out = append(out, e.Content) }
    }
    return out
}

func newLoop(m llm.LanguageModel) (*CodeSynthesisLoop, *countingRunner, *store.Store) {
    s := store.New(nil, nil)
    r := &countingRunner{Interpreter: interpreter.New(2*time.Second, nil)}
    return &CodeSynthesisLoop{Model: m, Store: s, Runner: r}, r, s
}

func codeJob(bound int) Job {
    step := models.Step{SequenceNumber: 1, Kind: kinds.TagCodeGeneration, Description: "compute x", ProducedData: []string{"x"}}
    k, _ := kinds.DefaultRegistry().Resolve(step.Kind)
    return Job{Query: "q", Step: step, Gen: k.CodeGen(step, kinds.Env{}), Bound: bound}
}

func TestSynthesizeFirstTry(t *testing.T) {
    m := &llm.ScriptedModel{Responses: []string{fenced(addsX)}}
    loop, runner, s := newLoop(m)
    rec := &recorder{}

    art, sess, err := loop.Synthesize(context.Background(), codeJob(3), rec.emit)
    require.NoError(t, err)
    assert.True(t, art.Satisfied)
    assert.Equal(t, 1, art.Attempts)
    assert.Equal(t, []State{StateGenerate, StateCheck, StateExecute, StateDone}, sess.Trace)
    assert.Equal(t, 1, runner.calls)
    v, err := s.Get("x")
    require.NoError(t, err)
    assert.Equal(t, 42, v)

    require.Len(t, m.Calls(), 1)
    assert.True(t, strings.HasPrefix(m.Calls()[0], prompts.HeaderCode))
    assert.Contains(t, m.Calls()[0], prompts.KeysLabel+"x")
    assert.Contains(t, rec.final(models.EventCode), strings.TrimSpace(addsX))
}

func TestCheckFailureNeverExecutes(t *testing.T) {
    m := &llm.ScriptedModel{Respond: func(string) (string, error) { return fenced(noImport), nil }}
    loop, runner, _ := newLoop(m)

    art, sess, err := loop.Synthesize(context.Background(), codeJob(3), nil)
    assert.Nil(t, art)
    var ex *models.StepExecutionExhaustedError
    require.ErrorAs(t, err, &ex)
    assert.Equal(t, 3, ex.Attempts)
    assert.Contains(t, ex.LastError, "blueprint/store")
    assert.Equal(t, 0, runner.calls)
    assert.Equal(t, 2, sess.Fixes)
    assert.Len(t, m.Calls(), 3)
    assert.NotContains(t, sess.Trace, StateExecute)
}

func TestMissingKeyIsFixed(t *testing.T) {
    m := &llm.ScriptedModel{Responses: []string{fenced(skipsX), fenced(addsX)}}
    loop, runner, s := newLoop(m)

    art, sess, err := loop.Synthesize(context.Background(), codeJob(3), nil)
    require.NoError(t, err)
    assert.Equal(t, 2, art.Attempts)
    assert.Equal(t, 1, sess.Fixes)
    assert.Equal(t, 2, runner.calls)
    assert.True(t, s.Has("x"))

    fix := m.Calls()[1]
    assert.True(t, strings.HasPrefix(fix, prompts.HeaderFix))
    assert.Contains(t, fix, "post-condition")
    assert.Contains(t, fix, `"x"`)
}

// sequence answers each call with the next reply or error.
func sequence(replies ...any) func(string) (string, error) {
    var mu sync.Mutex
    n := 0
    return func(string) (string, error) {
        mu.Lock()
        defer mu.Unlock()
        r := replies[n%len(replies)]
        n++
        if err, ok := r.(error); ok { return "", err }
        return r.(string), nil
    }
}

func TestFailedFixRequestKeepsCodeError(t *testing.T) {
    m := &llm.ScriptedModel{Respond: sequence(fenced(skipsX), errors.New("upstream 503"), fenced(addsX))}
    loop, _, s := newLoop(m)

    _, sess, err := loop.Synthesize(context.Background(), codeJob(4), nil)
    require.NoError(t, err)
    assert.True(t, s.Has("x"))
    assert.Equal(t, 2, sess.Fixes)

    calls := m.Calls()
    require.Len(t, calls, 3)
    assert.Contains(t, calls[2], "post-condition")
    assert.NotContains(t, calls[2], "upstream 503")
}

func TestProseFixReplyKeepsFailingProgram(t *testing.T) {
    m := &llm.ScriptedModel{Respond: sequence(fenced(skipsX), "Sorry, I cannot see what is wrong here.", fenced(addsX))}
    loop, _, _ := newLoop(m)

    _, _, err := loop.Synthesize(context.Background(), codeJob(4), nil)
    require.NoError(t, err)

    calls := m.Calls()
    require.Len(t, calls, 3)
    assert.Contains(t, calls[2], `if len("") > 0`)
    assert.NotContains(t, calls[2], "Sorry")
    assert.Contains(t, calls[2], "post-condition")
}

func TestBoundStopsRetries(t *testing.T) {
    m := &llm.ScriptedModel{Respond: func(string) (string, error) { return fenced(skipsX), nil }}
    loop, runner, _ := newLoop(m)
    rec := &recorder{}

    _, sess, err := loop.Synthesize(context.Background(), codeJob(3), rec.emit)
    var ex *models.StepExecutionExhaustedError
    require.ErrorAs(t, err, &ex)
    assert.Equal(t, 1, ex.Step)
    assert.Equal(t, 3, ex.Attempts)
    assert.Contains(t, ex.LastError, `"x"`)
    assert.Equal(t, 3, runner.calls)
    assert.Equal(t, 2, sess.Fixes)
    assert.Equal(t, StateFatal, sess.State)
    assert.Len(t, rec.final(models.EventError), 3)
}

func TestPriorArtifactIsReused(t *testing.T) {
    m := &llm.ScriptedModel{}
    loop, _, _ := newLoop(m)
    job := codeJob(3)
    job.Prior = &models.Artifact{SequenceNumber: 1, Source: addsX}

    art, sess, err := loop.Synthesize(context.Background(), job, nil)
    require.NoError(t, err)
    assert.Equal(t, addsX, art.Source)
    assert.Equal(t, StateCheck, sess.Trace[0])
    assert.Empty(t, m.Calls())
}

func TestChangedStepIgnoresPriorArtifact(t *testing.T) {
    m := &llm.ScriptedModel{Responses: []string{fenced(addsX)}}
    loop, _, _ := newLoop(m)
    job := codeJob(3)
    job.Step.Changed = true
    job.Prior = &models.Artifact{SequenceNumber: 1, Source: skipsX}

    art, _, err := loop.Synthesize(context.Background(), job, nil)
    require.NoError(t, err)
    assert.Equal(t, strings.TrimSpace(addsX), art.Source)
    assert.Len(t, m.Calls(), 1)
}

func TestExecuteDiscardsStaleContractKeys(t *testing.T) {
    m := &llm.ScriptedModel{Responses: []string{fenced(addsX)}}
    loop, _, s := newLoop(m)
    require.NoError(t, s.Add("x", "stale"))

    _, _, err := loop.Synthesize(context.Background(), codeJob(3), nil)
    require.NoError(t, err)
    v, _ := s.Get("x")
    assert.Equal(t, 42, v)
}

func TestGenerationFailureIsFatal(t *testing.T) {
    m := &llm.ScriptedModel{}
    loop, runner, _ := newLoop(m)
    loop.GenerateAttempts = 2

    _, sess, err := loop.Synthesize(context.Background(), codeJob(5), nil)
    var ex *models.StepExecutionExhaustedError
    require.ErrorAs(t, err, &ex)
    assert.Equal(t, 2, ex.Attempts)
    assert.Equal(t, []State{StateGenerate, StateFatal}, sess.Trace)
    assert.Equal(t, 0, runner.calls)
}

func TestCanceledContextStopsLoop(t *testing.T) {
    m := &llm.ScriptedModel{Responses: []string{fenced(addsX)}}
    loop, _, _ := newLoop(m)
    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    _, _, err := loop.Synthesize(ctx, codeJob(3), nil)
    assert.ErrorIs(t, err, context.Canceled)
}

const emptyAnalysis = `package main

import "blueprint/store"

func Run() error {
    return store.Add("analysis_result_2", "")
}
`

const goodAnalysis = `package main

import (
    "fmt"

    "blueprint/store"
)

func Run() error {
    v, err := store.Get("x")
    if err != nil {
        return err
    }
    return store.Add("analysis_result_2", fmt.Sprintf("x is %v", v))
}
`

func analysisPlan() *blueprint.Blueprint {
    plan := blueprint.NewCollection("what is x")
    plan.AddStep(models.Step{Kind: kinds.TagCodeGeneration, Description: "compute x", ProducedData: []string{"x"}})
    plan.AddStep(models.Step{Kind: kinds.TagAnalysis, Description: "describe x", RequiredData: []string{"x"}})
    return blueprint.New(plan, 3)
}

func TestStepExecutorRefixesOnKindPostCondition(t *testing.T) {
    m := &llm.ScriptedModel{Responses: []string{fenced(emptyAnalysis), fenced(goodAnalysis)}}
    loop, _, s := newLoop(m)
    require.NoError(t, s.Add("x", 7))
    ex := &StepExecutor{Registry: kinds.DefaultRegistry(), Synth: loop, Store: s}
    bp := analysisPlan()
    step, _ := bp.Plan.GetStep(2)

    require.NoError(t, ex.Execute(context.Background(), bp, step, nil))
    v, err := s.Get(kinds.AnalysisKey(2))
    require.NoError(t, err)
    assert.Equal(t, "x is 7", v)

    art, ok := bp.Artifact(2)
    require.True(t, ok)
    assert.True(t, art.Satisfied)
    assert.Contains(t, art.Source, `fmt.Sprintf("x is %v", v)`)
    require.Len(t, m.Calls(), 2)
    assert.Contains(t, m.Calls()[0], "### x")
    assert.Contains(t, m.Calls()[1], "analysis_result_2 is empty")
}

func TestStepExecutorHonorsBlueprintBound(t *testing.T) {
    m := &llm.ScriptedModel{Respond: func(string) (string, error) { return fenced(skipsX), nil }}
    loop, runner, s := newLoop(m)
    ex := &StepExecutor{Registry: kinds.DefaultRegistry(), Synth: loop, Store: s}
    bp := analysisPlan()
    bp.FixBounds = map[string]int{kinds.TagCodeGeneration: 2}
    step, _ := bp.Plan.GetStep(1)

    err := ex.Execute(context.Background(), bp, step, nil)
    var exh *models.StepExecutionExhaustedError
    require.ErrorAs(t, err, &exh)
    assert.Equal(t, 2, exh.Attempts)
    assert.Equal(t, 2, runner.calls)
    _, ok := bp.Artifact(1)
    assert.False(t, ok)
}

func TestStepExecutorUnknownKind(t *testing.T) {
    ex := &StepExecutor{Registry: kinds.DefaultRegistry(), Synth: &CodeSynthesisLoop{}, Store: store.New(nil, nil)}
    bp := analysisPlan()
    err := ex.Execute(context.Background(), bp, models.Step{SequenceNumber: 1, Kind: "nope"}, nil)
    var uk *models.UnknownStepKindError
    assert.ErrorAs(t, err, &uk)
}

func TestReporterUsesAnalysisResults(t *testing.T) {
    s := store.New(nil, nil)
    require.NoError(t, s.Add("x", []int{1, 2, 3}))
    require.NoError(t, s.Add(kinds.AnalysisKey(2), "mean is 2"))
    m := &llm.ScriptedModel{Responses: []string{"# Answer\n\nx averages 2."}}
    rec := &recorder{}
    r := &Reporter{Model: m, Store: s}

    text, err := r.Report(context.Background(), analysisPlan().Plan, rec.emit)
    require.NoError(t, err)
    assert.Equal(t, "# Answer\n\nx averages 2.", text)
    assert.Equal(t, []string{text}, rec.final(models.EventReport))

    prompt := m.Calls()[0]
    assert.True(t, strings.HasPrefix(prompt, prompts.HeaderReport))
    assert.Contains(t, prompt, "### Step 2: describe x\nmean is 2")
    assert.NotContains(t, prompt, "### Step 1")
}

func TestReporterFallsBackToProducedKeys(t *testing.T) {
    s := store.New(nil, nil)
    require.NoError(t, s.Add("x", 7))
    r := &Reporter{Model: &llm.ScriptedModel{}, Store: s}
    findings := r.Findings(analysisPlan().Plan)
    require.Len(t, findings, 1)
    assert.Equal(t, 1, findings[0].Step)
    assert.True(t, strings.HasPrefix(findings[0].Result, "x:\n"))
}

func TestReporterWithoutResults(t *testing.T) {
    r := &Reporter{Model: &llm.ScriptedModel{}, Store: store.New(nil, nil)}
    _, err := r.Report(context.Background(), analysisPlan().Plan, nil)
    assert.Error(t, err)
}
