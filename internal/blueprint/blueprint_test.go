package blueprint

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/example/blueprint-engine/internal/models"
)

func TestSnapshotRestoresPlanSourcesAndBudget(t *testing.T) {
    plan := NewCollection("q")
    plan.AddStep(models.Step{Kind: "retrieval", Description: "fetch", ProducedData: []string{"x"}})
    plan.AddStep(models.Step{Kind: "analysis", Description: "analyze", RequiredData: []string{"x"}})
    bp := New(plan, 5)
    bp.FixBounds = map[string]int{"analysis": 8}
    bp.SetArtifact(&models.Artifact{SequenceNumber: 1, Source: "package main", Satisfied: true})

    blob, err := bp.Encode()
    require.NoError(t, err)
    back, err := Decode(blob)
    require.NoError(t, err)

    assert.Equal(t, 5, back.MaxRetry)
    assert.Equal(t, map[string]int{"analysis": 8}, back.FixBounds)
    assert.Equal(t, map[int]string{1: "package main"}, back.Sources())
    a, ok := back.Artifact(1)
    require.True(t, ok)
    assert.True(t, a.Satisfied)
    assert.Equal(t, plan.ListSteps(), back.Plan.ListSteps())
}

func TestDecodeRejectsGarbage(t *testing.T) {
    _, err := Decode([]byte("not json"))
    assert.Error(t, err)
    _, err = Decode([]byte(`{"version":99,"plan":{"steps":[]}}`))
    assert.Error(t, err)
    _, err = Decode([]byte(`{"version":1}`))
    assert.Error(t, err)
}

func TestReplanDropsChangedArtifacts(t *testing.T) {
    plan := NewCollection("q")
    plan.AddStep(models.Step{Description: "a"})
    plan.AddStep(models.Step{Description: "b"})
    plan.AddStep(models.Step{Description: "c"})
    bp := New(plan, 3)
    for i := 1; i <= 3; i++ {
        bp.SetArtifact(&models.Artifact{SequenceNumber: i, Source: "src"})
    }

    next := NewCollection("q")
    next.AddStep(models.Step{Description: "a"})
    next.AddStep(models.Step{Description: "b2", Changed: true})
    bp.Replan(next)

    _, ok := bp.Artifact(1)
    assert.True(t, ok)
    _, ok = bp.Artifact(2)
    assert.False(t, ok)
    _, ok = bp.Artifact(3)
    assert.False(t, ok)
}
