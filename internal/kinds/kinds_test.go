package kinds

import (
    "context"
    "errors"
    "os"
    "path/filepath"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/providers/llm"
    "github.com/example/blueprint-engine/internal/store"
    "github.com/example/blueprint-engine/internal/tools"
)

func TestDefaultRegistry(t *testing.T) {
    r := DefaultRegistry()
    assert.Equal(t, []string{"retrieval", "analysis", "export", "code_generation", "custom"}, r.Tags())
    assert.Equal(t, map[string]int{"retrieval": 8, "analysis": 8, "export": 3, "code_generation": 3, "custom": 3}, r.FixBounds())
    assert.Len(t, r.Catalog(), 5)

    _, err := r.Resolve("financial")
    var uk *models.UnknownStepKindError
    require.ErrorAs(t, err, &uk)
    assert.Equal(t, "financial", uk.Kind)
    assert.False(t, models.Recoverable(err))

    assert.Error(t, r.Register(Custom()))
    assert.Error(t, r.Register(Kind{Tag: "half"}))

    require.NoError(t, r.SetFixBound("export", 5))
    k, _ := r.Resolve("export")
    assert.Equal(t, 5, k.FixBound)
    assert.Error(t, r.SetFixBound("export", 0))
    assert.ErrorAs(t, r.SetFixBound("nope", 2), &uk)
}

func TestValidation(t *testing.T) {
    r := DefaultRegistry()
    cases := []struct {
        entry models.PlanEntry
        ok    bool
    }{
        {models.PlanEntry{Kind: "retrieval", Task: "fetch", ProducedData: []string{"x"}}, true},
        {models.PlanEntry{Kind: "retrieval", Task: "fetch"}, false},
        {models.PlanEntry{Kind: "analysis", Task: "analyze", RequiredData: []string{"x"}}, true},
        {models.PlanEntry{Kind: "analysis", Task: "analyze", RequiredData: []string{" "}}, false},
        {models.PlanEntry{Kind: "export", Task: "save", FileType: "CSV", RequiredData: []string{"x"}}, true},
        {models.PlanEntry{Kind: "export", Task: "save", FileType: "xlsx", RequiredData: []string{"x"}}, false},
        {models.PlanEntry{Kind: "export", Task: "save", FileType: "csv"}, false},
        {models.PlanEntry{Kind: "code_generation", Task: "merge", ProducedData: []string{"y"}}, true},
        {models.PlanEntry{Kind: "custom", Task: "go"}, false},
    }
    for _, c := range cases {
        k, err := r.Resolve(c.entry.Kind)
        require.NoError(t, err)
        err = k.Validate(c.entry)
        assert.Equal(t, c.ok, err == nil, "%+v: %v", c.entry, err)
    }
}

func TestRetrievalInfoSelectsKnownFunctions(t *testing.T) {
    m := &llm.ScriptedModel{Responses: []string{"HTTPGet, Teleport, tools.HTMLToText"}}
    env := Env{Model: m, Docs: tools.NewCatalog(&tools.Toolbox{})}
    step, err := Retrieval().Info(context.Background(), env, models.PlanEntry{Kind: "retrieval", Task: "fetch page", ProducedData: []string{"page"}, Category: "web"})
    require.NoError(t, err)
    assert.Equal(t, []string{"HTTPGet", "HTMLToText"}, step.SelectedFunctions)
    assert.Equal(t, "web", step.Category)
    require.Len(t, m.Calls(), 1)
    assert.Contains(t, m.Calls()[0], "fetch page")
}

func TestRetrievalInfoFailures(t *testing.T) {
    env := Env{Model: &llm.ScriptedModel{Responses: []string{"Nothing"}}, Docs: tools.NewCatalog(&tools.Toolbox{})}
    _, err := Retrieval().Info(context.Background(), env, models.PlanEntry{Kind: "retrieval", Task: "t", ProducedData: []string{"x"}})
    var sv *models.StepValidationError
    require.ErrorAs(t, err, &sv)

    _, err = Retrieval().Info(context.Background(), env, models.PlanEntry{Kind: "retrieval", Task: "t", ProducedData: []string{"x"}, Category: "finance"})
    require.ErrorAs(t, err, &sv)
    assert.Contains(t, sv.Reason, "finance")
}

func TestRetrievalPlanSelectionSkipsModel(t *testing.T) {
    m := &llm.ScriptedModel{}
    env := Env{Model: m, Docs: tools.NewCatalog(&tools.Toolbox{})}
    step, err := Retrieval().Info(context.Background(), env, models.PlanEntry{Kind: "retrieval", Task: "t", ProducedData: []string{"x"}, SelectedFunctions: []string{"ParseCSV", "ParseCSV"}})
    require.NoError(t, err)
    assert.Equal(t, []string{"ParseCSV"}, step.SelectedFunctions)
    assert.Empty(t, m.Calls())
}

func TestCodeGenContracts(t *testing.T) {
    env := Env{Docs: tools.NewCatalog(&tools.Toolbox{})}
    a := Analysis().CodeGen(models.Step{SequenceNumber: 4, Kind: "analysis", ProducedData: []string{"stats"}}, env)
    assert.Equal(t, []string{"stats", "analysis_result_4"}, a.Contract())
    assert.Contains(t, a.Prompt("q", nil, []string{"fmt"}), `"analysis_result_4"`)

    e := Export().CodeGen(models.Step{SequenceNumber: 2, Kind: "export", FileType: "csv"}, env)
    assert.Equal(t, []string{"export_file_2"}, e.Contract())
    p := e.Prompt("q", nil, nil)
    assert.Contains(t, p, "export_2.csv")
    assert.Contains(t, p, "tools.WriteCSV")
}

func TestExportInfoNormalizesFileName(t *testing.T) {
    step, err := Export().Info(context.Background(), Env{}, models.PlanEntry{Kind: "export", Task: "save", FileType: ".MD", FileName: "report", RequiredData: []string{"x"}})
    require.NoError(t, err)
    assert.Equal(t, "md", step.FileType)
    assert.Equal(t, "report.md", step.FileName)
}

func TestAnalysisExecutorRefixes(t *testing.T) {
    s := store.New(nil, nil)
    step := models.Step{SequenceNumber: 1, Kind: "analysis"}
    require.NoError(t, s.Add("analysis_result_1", "   "))

    fixes := 0
    fix := func(ctx context.Context, cause error) (*models.Artifact, error) {
        fixes++
        assert.Contains(t, cause.Error(), "analysis_result_1 is empty")
        s.Set("analysis_result_1", "mean is 4")
        return &models.Artifact{SequenceNumber: 1}, nil
    }
    art := &models.Artifact{SequenceNumber: 1}
    require.NoError(t, Analysis().NewExecutor(s).Execute(context.Background(), step, art, fix))
    assert.Equal(t, 1, fixes)
}

func TestExecutorGivesUpAfterRefixBound(t *testing.T) {
    s := store.New(nil, nil)
    step := models.Step{SequenceNumber: 3, Kind: "code_generation", ProducedData: []string{"y"}}
    fixes := 0
    fix := func(context.Context, error) (*models.Artifact, error) { fixes++; return nil, nil }
    err := CodeGeneration().NewExecutor(s).Execute(context.Background(), step, nil, fix)
    var ex *models.StepExecutionExhaustedError
    require.ErrorAs(t, err, &ex)
    assert.Equal(t, 3, ex.Step)
    assert.Equal(t, MaxRefix, fixes)
    assert.Contains(t, ex.LastError, `"y"`)
}

func TestExecutorPropagatesFixFailure(t *testing.T) {
    s := store.New(nil, nil)
    boom := errors.New("fix exhausted")
    err := Custom().NewExecutor(s).Execute(context.Background(), models.Step{SequenceNumber: 1, ProducedData: []string{"z"}}, nil,
        func(context.Context, error) (*models.Artifact, error) { return nil, boom })
    assert.ErrorIs(t, err, boom)
}

func TestExportedFileCheck(t *testing.T) {
    s := store.New(nil, nil)
    dir := t.TempDir()
    empty := filepath.Join(dir, "e.txt")
    require.NoError(t, os.WriteFile(empty, nil, 0o644))
    full := filepath.Join(dir, "f.txt")
    require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
    step := models.Step{SequenceNumber: 1, Kind: "export"}

    s.Set("export_file_1", empty)
    assert.ErrorContains(t, exportedFile(s, step), "empty")
    s.Set("export_file_1", filepath.Join(dir, "missing"))
    assert.Error(t, exportedFile(s, step))
    s.Set("export_file_1", full)
    assert.NoError(t, exportedFile(s, step))
}
