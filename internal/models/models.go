package models

import (
    "reflect"
    "time"
)

type Status string

const (
    StatusPending  Status = "PENDING"
    StatusPlanned  Status = "PLANNED"
    StatusRunning  Status = "RUNNING"
    StatusSuccess  Status = "SUCCESS"
    StatusFailed   Status = "FAILED"
)

// Step is one typed unit of a blueprint. Kind-specific fields are left empty
// by kinds that do not use them.
type Step struct {
    SequenceNumber    int      `json:"sequence_number"`
    Kind              string   `json:"kind"`
    Description       string   `json:"description"`
    RequiredData      []string `json:"required_data"`
    ProducedData      []string `json:"produced_data"`
    Category          string   `json:"category,omitempty"`
    SelectedFunctions []string `json:"selected_functions,omitempty"`
    FileType          string   `json:"file_type,omitempty"`
    FileName          string   `json:"file_name,omitempty"`
    Changed           bool     `json:"changed,omitempty"`
    Status            Status   `json:"status,omitempty"`
}

// SameContent reports whether two steps describe the same work, ignoring
// position and runtime bookkeeping.
func (s Step) SameContent(o Step) bool {
    a, b := s, o
    a.SequenceNumber, b.SequenceNumber = 0, 0
    a.Changed, b.Changed = false, false
    a.Status, b.Status = "", ""
    return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(s Step) Step {
    if len(s.RequiredData) == 0 { s.RequiredData = nil }
    if len(s.ProducedData) == 0 { s.ProducedData = nil }
    if len(s.SelectedFunctions) == 0 { s.SelectedFunctions = nil }
    return s
}

// PlanEntry is what the language model proposes for a step before the kind's
// info generator turns it into a Step.
type PlanEntry struct {
    Kind              string   `json:"kind" jsonschema:"required,description=registered step kind tag"`
    Task              string   `json:"task" jsonschema:"required,description=what this step must accomplish"`
    ProducedData      []string `json:"produced_data" jsonschema:"description=store keys this step must add"`
    RequiredData      []string `json:"required_data" jsonschema:"description=store keys produced by earlier steps that this step reads"`
    Category          string   `json:"category,omitempty" jsonschema:"description=retrieval only: function catalog category"`
    SelectedFunctions []string `json:"selected_functions,omitempty" jsonschema:"description=retrieval only: catalog functions to use"`
    FileType          string   `json:"file_type,omitempty" jsonschema:"description=export only: csv|json|txt|md|html"`
    FileName          string   `json:"file_name,omitempty" jsonschema:"description=export only: output file name"`
}

// Artifact is the last-known-good source for one step.
type Artifact struct {
    SequenceNumber int       `json:"sequence_number"`
    Source         string    `json:"source"`
    Satisfied      bool      `json:"satisfied"`
    Attempts       int       `json:"attempts"`
    UpdatedAt      time.Time `json:"updated_at"`
}

type EventType string

const (
    EventPlan    EventType = "plan"
    EventCode    EventType = "code"
    EventError   EventType = "error"
    EventMessage EventType = "message"
    EventReport  EventType = "report"
)

// Event is one progress notification. Chunk marks streamed model output that
// consumers may coalesce.
type Event struct {
    Type    EventType `json:"type"`
    Content string    `json:"content"`
    Step    int       `json:"step,omitempty"`
    RunID   string    `json:"run_id,omitempty"`
    Chunk   bool      `json:"chunk,omitempty"`
}

// Emitter receives progress events. A nil Emitter discards them.
type Emitter func(Event)

func (e Emitter) Send(t EventType, step int, content string) {
    if e == nil { return }
    e(Event{Type: t, Step: step, Content: content})
}

func (e Emitter) Stream(t EventType, step int) func(chunk string) {
    if e == nil { return nil }
    return func(chunk string) {
        if chunk == "" { return }
        e(Event{Type: t, Step: step, Content: chunk, Chunk: true})
    }
}
