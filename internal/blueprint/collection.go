package blueprint

import (
    "encoding/json"
    "fmt"
    "sort"
    "sync"

    "github.com/example/blueprint-engine/internal/models"
)

// StepCollection is the ordered step list of one blueprint. Sequence numbers
// are always position+1; every insert and remove renumbers.
type StepCollection struct {
    mu           sync.RWMutex
    query        string
    querySummary string
    steps        []models.Step
}

func NewCollection(query string) *StepCollection {
    return &StepCollection{query: query}
}

func (c *StepCollection) Query() string {
    c.mu.RLock()
    defer c.mu.RUnlock()
    return c.query
}

func (c *StepCollection) QuerySummary() string {
    c.mu.RLock()
    defer c.mu.RUnlock()
    return c.querySummary
}

func (c *StepCollection) SetQuerySummary(s string) {
    c.mu.Lock()
    c.querySummary = s
    c.mu.Unlock()
}

func (c *StepCollection) Len() int {
    c.mu.RLock()
    defer c.mu.RUnlock()
    return len(c.steps)
}

// AddStep appends step and returns it with its assigned sequence number.
func (c *StepCollection) AddStep(step models.Step) models.Step {
    c.mu.Lock()
    defer c.mu.Unlock()
    step.SequenceNumber = len(c.steps) + 1
    c.steps = append(c.steps, step)
    return step
}

// InsertStep places step at position (1-based) and shifts the rest.
func (c *StepCollection) InsertStep(position int, step models.Step) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    if position < 1 || position > len(c.steps)+1 {
        return &models.InvalidPositionError{Position: position, Max: len(c.steps) + 1}
    }
    idx := position - 1
    c.steps = append(c.steps, models.Step{})
    copy(c.steps[idx+1:], c.steps[idx:])
    c.steps[idx] = step
    c.renumber()
    return nil
}

func (c *StepCollection) RemoveStep(n int) (models.Step, error) {
    c.mu.Lock()
    defer c.mu.Unlock()
    if n < 1 || n > len(c.steps) {
        return models.Step{}, &models.InvalidPositionError{Position: n, Max: len(c.steps)}
    }
    removed := c.steps[n-1]
    c.steps = append(c.steps[:n-1], c.steps[n:]...)
    c.renumber()
    return removed, nil
}

func (c *StepCollection) GetStep(n int) (models.Step, error) {
    c.mu.RLock()
    defer c.mu.RUnlock()
    if n < 1 || n > len(c.steps) {
        return models.Step{}, &models.InvalidPositionError{Position: n, Max: len(c.steps)}
    }
    return c.steps[n-1], nil
}

// UpdateStep applies fn to step n. The sequence number cannot be changed.
func (c *StepCollection) UpdateStep(n int, fn func(*models.Step)) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    if n < 1 || n > len(c.steps) {
        return &models.InvalidPositionError{Position: n, Max: len(c.steps)}
    }
    fn(&c.steps[n-1])
    c.steps[n-1].SequenceNumber = n
    return nil
}

// ListSteps returns a copy of the steps in order.
func (c *StepCollection) ListSteps() []models.Step {
    c.mu.RLock()
    defer c.mu.RUnlock()
    out := make([]models.Step, len(c.steps))
    copy(out, c.steps)
    return out
}

func (c *StepCollection) StepsOfKind(kind string) []models.Step {
    c.mu.RLock()
    defer c.mu.RUnlock()
    var out []models.Step
    for _, s := range c.steps {
        if s.Kind == kind { out = append(out, s) }
    }
    return out
}

// Clone returns an independent copy.
func (c *StepCollection) Clone() *StepCollection {
    c.mu.RLock()
    defer c.mu.RUnlock()
    out := &StepCollection{query: c.query, querySummary: c.querySummary, steps: make([]models.Step, len(c.steps))}
    copy(out.steps, c.steps)
    return out
}

func (c *StepCollection) renumber() {
    for i := range c.steps { c.steps[i].SequenceNumber = i + 1 }
}

type collectionJSON struct {
    Query        string        `json:"query"`
    QuerySummary string        `json:"query_summary"`
    Steps        []models.Step `json:"steps"`
}

func (c *StepCollection) MarshalJSON() ([]byte, error) {
    c.mu.RLock()
    defer c.mu.RUnlock()
    steps := c.steps
    if steps == nil { steps = []models.Step{} }
    return json.Marshal(collectionJSON{Query: c.query, QuerySummary: c.querySummary, Steps: steps})
}

// UnmarshalJSON accepts steps in any order but requires sequence numbers to
// be exactly 1..n.
func (c *StepCollection) UnmarshalJSON(b []byte) error {
    var raw collectionJSON
    if err := json.Unmarshal(b, &raw); err != nil { return err }
    sort.SliceStable(raw.Steps, func(i, j int) bool { return raw.Steps[i].SequenceNumber < raw.Steps[j].SequenceNumber })
    for i, s := range raw.Steps {
        if s.SequenceNumber != i+1 {
            return fmt.Errorf("step collection: sequence numbers must be dense from 1, got %d at position %d", s.SequenceNumber, i+1)
        }
    }
    c.mu.Lock()
    defer c.mu.Unlock()
    c.query = raw.Query
    c.querySummary = raw.QuerySummary
    c.steps = raw.Steps
    return nil
}
