package blueprint

import (
    "encoding/json"
    "fmt"
    "sync"

    "github.com/example/blueprint-engine/internal/models"
)

const formatVersion = 1

// Blueprint is a plan plus the per-step sources synthesized for it and the
// retry budget it was built with.
type Blueprint struct {
    mu        sync.RWMutex
    Plan      *StepCollection
    sources   map[int]*models.Artifact
    MaxRetry  int
    FixBounds map[string]int
}

func New(plan *StepCollection, maxRetry int) *Blueprint {
    return &Blueprint{Plan: plan, MaxRetry: maxRetry, sources: map[int]*models.Artifact{}}
}

// Current returns the plan in place, safe against a concurrent Replan.
func (b *Blueprint) Current() *StepCollection {
    b.mu.RLock()
    defer b.mu.RUnlock()
    return b.Plan
}

func (b *Blueprint) Artifact(seq int) (*models.Artifact, bool) {
    b.mu.RLock()
    defer b.mu.RUnlock()
    a, ok := b.sources[seq]
    return a, ok
}

func (b *Blueprint) SetArtifact(a *models.Artifact) {
    if a == nil { return }
    b.mu.Lock()
    if b.sources == nil { b.sources = map[int]*models.Artifact{} }
    b.sources[a.SequenceNumber] = a
    b.mu.Unlock()
}

func (b *Blueprint) DropArtifact(seq int) {
    b.mu.Lock()
    delete(b.sources, seq)
    b.mu.Unlock()
}

// Sources returns the step source map keyed by sequence number.
func (b *Blueprint) Sources() map[int]string {
    b.mu.RLock()
    defer b.mu.RUnlock()
    out := make(map[int]string, len(b.sources))
    for k, a := range b.sources { out[k] = a.Source }
    return out
}

// Replan swaps in a new plan. Artifacts of steps flagged Changed, and of
// positions beyond the new plan, are dropped.
func (b *Blueprint) Replan(plan *StepCollection) {
    b.mu.Lock()
    defer b.mu.Unlock()
    b.Plan = plan
    for seq := range b.sources {
        st, err := plan.GetStep(seq)
        if err != nil || st.Changed { delete(b.sources, seq) }
    }
}

type snapshotJSON struct {
    Version   int                      `json:"version"`
    Plan      *StepCollection          `json:"plan"`
    Sources   map[int]*models.Artifact `json:"sources"`
    MaxRetry  int                      `json:"max_retry"`
    FixBounds map[string]int           `json:"fix_bounds,omitempty"`
}

// Encode produces the snapshot blob.
func (b *Blueprint) Encode() ([]byte, error) {
    b.mu.RLock()
    defer b.mu.RUnlock()
    if b.Plan == nil { return nil, fmt.Errorf("blueprint has no plan") }
    return json.Marshal(snapshotJSON{
        Version:   formatVersion,
        Plan:      b.Plan,
        Sources:   b.sources,
        MaxRetry:  b.MaxRetry,
        FixBounds: b.FixBounds,
    })
}

// Decode restores a blueprint from a snapshot blob.
func Decode(blob []byte) (*Blueprint, error) {
    var raw snapshotJSON
    if err := json.Unmarshal(blob, &raw); err != nil {
        return nil, fmt.Errorf("decode blueprint: %w", err)
    }
    if raw.Version != formatVersion {
        return nil, fmt.Errorf("decode blueprint: unsupported version %d", raw.Version)
    }
    if raw.Plan == nil { return nil, fmt.Errorf("decode blueprint: missing plan") }
    if raw.Sources == nil { raw.Sources = map[int]*models.Artifact{} }
    for seq, a := range raw.Sources {
        if a == nil { delete(raw.Sources, seq); continue }
        a.SequenceNumber = seq
    }
    return &Blueprint{Plan: raw.Plan, sources: raw.Sources, MaxRetry: raw.MaxRetry, FixBounds: raw.FixBounds}, nil
}
