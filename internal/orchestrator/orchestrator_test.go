package orchestrator

import (
    "context"
    "path/filepath"
    "strings"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/goleak"
    "golang.org/x/sync/errgroup"

    "github.com/example/blueprint-engine/internal/agents"
    "github.com/example/blueprint-engine/internal/interpreter"
    "github.com/example/blueprint-engine/internal/kinds"
    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/prompts"
    "github.com/example/blueprint-engine/internal/providers/llm"
    "github.com/example/blueprint-engine/internal/storage"
    "github.com/example/blueprint-engine/internal/store"
)

// offline wraps MockModel so tests can count prompts.
func offline() *llm.ScriptedModel {
    return &llm.ScriptedModel{Respond: func(p string) (string, error) {
        return llm.MockModel{}.Complete(context.Background(), p, nil)
    }}
}

func countHeader(m *llm.ScriptedModel, header string) int {
    n := 0
    for _, p := range m.Calls() {
        if strings.HasPrefix(p, header+"\n") { n++ }
    }
    return n
}

func newEngine(m llm.LanguageModel, planner agents.Planner) (*Orchestrator, *store.Store) {
    s := store.New(nil, nil)
    reg := kinds.DefaultRegistry()
    if planner == nil { planner = agents.NewBlueprintPlanner(m, reg, nil, 3, nil) }
    loop := &agents.CodeSynthesisLoop{Model: m, Store: s, Runner: interpreter.New(2*time.Second, nil)}
    steps := &agents.StepExecutor{Registry: reg, Synth: loop, Store: s, Env: kinds.Env{Model: m}}
    return New(planner, steps, &agents.Reporter{Model: m, Store: s}, s, nil), s
}

func TestStartRunsPlanStepsAndReport(t *testing.T) {
    m := offline()
    o, s := newEngine(m, nil)
    r := o.CreateRun("compare rainfall in Lima and Quito")
    ch, unsub := o.Subscribe(r.ID)

    require.NoError(t, o.Start(context.Background(), r.ID))
    unsub()
    events := drain(ch)

    got, ok := o.GetRun(r.ID)
    require.True(t, ok)
    assert.Equal(t, models.StatusSuccess, got.Status)
    assert.True(t, strings.HasPrefix(got.Report, "# Report"))
    assert.Empty(t, got.Error)
    for _, st := range got.Blueprint.Plan.ListSteps() {
        assert.Equal(t, models.StatusSuccess, st.Status, "step %d", st.SequenceNumber)
    }
    assert.True(t, s.Has("source_data"))
    assert.True(t, s.Has(kinds.AnalysisKey(2)))
    assert.Len(t, got.Blueprint.Sources(), 2)

    seen := map[models.EventType]bool{}
    for _, ev := range events {
        assert.Equal(t, r.ID, ev.RunID)
        seen[ev.Type] = true
    }
    for _, typ := range []models.EventType{models.EventPlan, models.EventCode, models.EventMessage, models.EventReport} {
        assert.True(t, seen[typ], "missing %s events", typ)
    }
    assert.False(t, seen[models.EventError])
}

func TestExecutePlanReusesStoredSources(t *testing.T) {
    m := offline()
    o, _ := newEngine(m, nil)
    r, err := o.Run(context.Background(), "q")
    require.NoError(t, err)
    codeCalls := countHeader(m, prompts.HeaderCode)
    assert.Equal(t, 2, codeCalls)

    require.NoError(t, o.ExecutePlan(context.Background(), r.ID))
    assert.Equal(t, codeCalls, countHeader(m, prompts.HeaderCode))
    assert.Equal(t, 2, countHeader(m, prompts.HeaderReport))
}

const neverAdds = "```go\npackage main\n\nimport \"blueprint/store\"\n\nfunc Run() error {\n    if len(\"\") > 0 {\n        return store.Add(\"x\", 1)\n    }\n    return nil\n}\n```"

func TestStepFailureAbortsRun(t *testing.T) {
    m := &llm.ScriptedModel{Respond: func(string) (string, error) { return neverAdds, nil }}
    planner := &agents.StaticPlanner{Steps: []models.Step{
        {Kind: kinds.TagCodeGeneration, Description: "compute x", ProducedData: []string{"x"}},
        {Kind: kinds.TagCodeGeneration, Description: "compute y", ProducedData: []string{"y"}, RequiredData: []string{"x"}},
    }}
    o, _ := newEngine(m, planner)
    o.FixBounds = map[string]int{kinds.TagCodeGeneration: 2}

    r, err := o.Run(context.Background(), "q")
    var ex *models.StepExecutionExhaustedError
    require.ErrorAs(t, err, &ex)
    assert.Equal(t, 2, ex.Attempts)
    assert.Equal(t, models.StatusFailed, r.Status)
    assert.Contains(t, r.Error, "failed after 2 attempts")

    steps := r.Blueprint.Plan.ListSteps()
    assert.Equal(t, models.StatusFailed, steps[0].Status)
    assert.Equal(t, models.StatusPending, steps[1].Status)
    assert.Equal(t, 0, countHeader(m, prompts.HeaderReport))
}

func TestPlanFailureMarksRunFailed(t *testing.T) {
    defer goleak.VerifyNone(t)
    m := &llm.ScriptedModel{Responses: []string{"nothing", "still nothing", "no"}}
    o, _ := newEngine(m, nil)
    r := o.CreateRun("q")
    ch, unsub := o.Subscribe(r.ID)

    _, err := o.PlanOnly(context.Background(), r.ID)
    var ex *models.PlanBuildExhaustedError
    require.ErrorAs(t, err, &ex)
    unsub()

    got, _ := o.GetRun(r.ID)
    assert.Equal(t, models.StatusFailed, got.Status)
    assert.Nil(t, got.Blueprint)
    var errs int
    for _, ev := range drain(ch) { if ev.Type == models.EventError { errs++ } }
    assert.Equal(t, 4, errs)
}

func TestModifyPlanKeepsPlanOnFailure(t *testing.T) {
    o, _ := newEngine(offline(), &agents.StaticPlanner{Steps: []models.Step{{Kind: kinds.TagCustom, Description: "do it"}}})
    r := o.CreateRun("q")
    _, err := o.ModifyPlan(context.Background(), r.ID, "more")
    assert.Error(t, err)

    plan, err := o.PlanOnly(context.Background(), r.ID)
    require.NoError(t, err)
    _, err = o.ModifyPlan(context.Background(), r.ID, "more")
    assert.Error(t, err)
    got, _ := o.GetRun(r.ID)
    assert.Equal(t, models.StatusPlanned, got.Status)
    assert.Equal(t, plan.ListSteps(), got.Blueprint.Plan.ListSteps())
}

func TestModifyPlanReplans(t *testing.T) {
    m := offline()
    o, _ := newEngine(m, nil)
    r := o.CreateRun("q")
    _, err := o.PlanOnly(context.Background(), r.ID)
    require.NoError(t, err)

    next, err := o.ModifyPlan(context.Background(), r.ID, "same again")
    require.NoError(t, err)
    assert.Equal(t, 2, next.Len())
    got, _ := o.GetRun(r.ID)
    assert.Same(t, next, got.Blueprint.Plan)
    assert.Equal(t, 1, countHeader(m, prompts.HeaderModify))
}

func TestSnapshotRoundTrip(t *testing.T) {
    repo, err := storage.Open(filepath.Join(t.TempDir(), "bp.db"), nil)
    require.NoError(t, err)
    defer repo.Close()

    m := offline()
    o, s := newEngine(m, nil)
    o.Snapshots = repo
    o.MaxRetry = 5
    o.FixBounds = map[string]int{kinds.TagAnalysis: 4}
    r, err := o.Run(context.Background(), "q")
    require.NoError(t, err)

    snap, err := o.SaveSnapshot(context.Background(), r.ID, "")
    require.NoError(t, err)
    assert.Equal(t, "q", snap.Name)
    assert.Equal(t, 2, snap.Steps)

    loaded, err := o.LoadSnapshot(context.Background(), snap.ID)
    require.NoError(t, err)
    assert.NotEqual(t, r.ID, loaded.ID)
    assert.Equal(t, models.StatusPlanned, loaded.Status)
    assert.Equal(t, 5, loaded.Blueprint.MaxRetry)
    assert.Equal(t, map[string]int{kinds.TagAnalysis: 4}, loaded.Blueprint.FixBounds)

    s.Clear()
    before := countHeader(m, prompts.HeaderCode)
    require.NoError(t, o.ExecutePlan(context.Background(), loaded.ID))
    assert.Equal(t, before, countHeader(m, prompts.HeaderCode))
    assert.True(t, s.Has("source_data"))
    assert.Len(t, o.ListRuns(), 2)
}

func TestSnapshotsNeedRepository(t *testing.T) {
    o, _ := newEngine(offline(), nil)
    r := o.CreateRun("q")
    _, err := o.SaveSnapshot(context.Background(), r.ID, "x")
    assert.Error(t, err)
    _, err = o.LoadSnapshot(context.Background(), "x")
    assert.Error(t, err)
}

func TestUnknownRun(t *testing.T) {
    o, _ := newEngine(offline(), nil)
    assert.ErrorIs(t, o.Start(context.Background(), "missing"), ErrRunNotFound)
    assert.ErrorIs(t, o.ExecutePlan(context.Background(), "missing"), ErrRunNotFound)
    _, ok := o.GetRun("missing")
    assert.False(t, ok)
}

func TestExecuteWithoutPlan(t *testing.T) {
    o, _ := newEngine(offline(), nil)
    r := o.CreateRun("q")
    assert.Error(t, o.ExecutePlan(context.Background(), r.ID))
}

func TestListRunsOldestFirst(t *testing.T) {
    o, _ := newEngine(offline(), nil)
    a := o.CreateRun("a")
    time.Sleep(time.Millisecond)
    b := o.CreateRun("b")
    runs := o.ListRuns()
    require.Len(t, runs, 2)
    assert.Equal(t, []string{a.ID, b.ID}, []string{runs[0].ID, runs[1].ID})
}

func TestLoadedSnapshotKeepsRetryBound(t *testing.T) {
    repo, err := storage.Open(filepath.Join(t.TempDir(), "bp.db"), nil)
    require.NoError(t, err)
    defer repo.Close()

    m := &llm.ScriptedModel{Respond: func(p string) (string, error) {
        if strings.HasPrefix(p, prompts.HeaderModify) || strings.HasPrefix(p, prompts.HeaderRepair) { return "not a plan", nil }
        return llm.MockModel{}.Complete(context.Background(), p, nil)
    }}
    o, _ := newEngine(m, nil)
    o.Snapshots = repo
    o.MaxRetry = 1
    r := o.CreateRun("q")
    _, err = o.PlanOnly(context.Background(), r.ID)
    require.NoError(t, err)
    snap, err := o.SaveSnapshot(context.Background(), r.ID, "one try")
    require.NoError(t, err)

    o.MaxRetry = 3
    loaded, err := o.LoadSnapshot(context.Background(), snap.ID)
    require.NoError(t, err)
    _, err = o.ModifyPlan(context.Background(), loaded.ID, "add an export")
    var ex *models.PlanBuildExhaustedError
    require.ErrorAs(t, err, &ex)
    assert.Equal(t, 1, ex.Attempts)
    assert.Equal(t, 1, countHeader(m, prompts.HeaderModify)+countHeader(m, prompts.HeaderRepair))
}

func TestSaveSnapshotDuringModify(t *testing.T) {
    repo, err := storage.Open(filepath.Join(t.TempDir(), "bp.db"), nil)
    require.NoError(t, err)
    defer repo.Close()

    o, _ := newEngine(offline(), nil)
    o.Snapshots = repo
    r := o.CreateRun("q")
    _, err = o.PlanOnly(context.Background(), r.ID)
    require.NoError(t, err)

    var g errgroup.Group
    g.Go(func() error {
        for i := 0; i < 5; i++ {
            if _, err := o.ModifyPlan(context.Background(), r.ID, "same again"); err != nil { return err }
        }
        return nil
    })
    g.Go(func() error {
        for i := 0; i < 5; i++ {
            if _, err := o.SaveSnapshot(context.Background(), r.ID, ""); err != nil { return err }
        }
        return nil
    })
    require.NoError(t, g.Wait())
    snaps, err := repo.List(context.Background())
    require.NoError(t, err)
    assert.Len(t, snaps, 5)
}
