package agents

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strings"

    "github.com/invopop/jsonschema"
    "go.uber.org/zap"

    "github.com/example/blueprint-engine/internal/blueprint"
    "github.com/example/blueprint-engine/internal/kinds"
    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/prompts"
    "github.com/example/blueprint-engine/internal/providers/llm"
    "github.com/example/blueprint-engine/internal/store"
)

const DefaultMaxRetry = 3

// BlueprintPlanner turns a query into a StepCollection: draft a JSON plan,
// validate every entry against the kind registry, materialize the steps, and
// on any failure ask for a repaired plan. MaxRetry bounds the total number of
// attempts for one build unless the caller passes its own bound.
type BlueprintPlanner struct {
    Model    llm.LanguageModel
    Registry *kinds.Registry
    Docs     kinds.DocsProvider
    MaxRetry int
    Log      *zap.Logger
}

func NewBlueprintPlanner(model llm.LanguageModel, reg *kinds.Registry, docs kinds.DocsProvider, maxRetry int, log *zap.Logger) *BlueprintPlanner {
    if log == nil { log = zap.NewNop() }
    if maxRetry <= 0 { maxRetry = DefaultMaxRetry }
    return &BlueprintPlanner{Model: model, Registry: reg, Docs: docs, MaxRetry: maxRetry, Log: log}
}

// Build plans query from scratch.
func (p *BlueprintPlanner) Build(ctx context.Context, query string, maxRetry int, emit models.Emitter) (*blueprint.StepCollection, error) {
    return p.run(ctx, query, prompts.Plan(query, p.Registry.Catalog(), planSchema()), nil, maxRetry, emit)
}

// Modify applies a change request to current and returns a new collection.
// current is never mutated, so a failed modify leaves it as the last good
// plan. Steps that differ from the step previously at the same position are
// flagged Changed.
func (p *BlueprintPlanner) Modify(ctx context.Context, current *blueprint.StepCollection, request string, maxRetry int, emit models.Emitter) (*blueprint.StepCollection, error) {
    cur, err := json.MarshalIndent(current.ListSteps(), "", "  ")
    if err != nil { return nil, err }
    prompt := prompts.Modify(current.Query(), p.Registry.Catalog(), planSchema(), string(cur), request)
    return p.run(ctx, current.Query(), prompt, current, maxRetry, emit)
}

func (p *BlueprintPlanner) run(ctx context.Context, query, prompt string, previous *blueprint.StepCollection, max int, emit models.Emitter) (*blueprint.StepCollection, error) {
    if max <= 0 { max = p.MaxRetry }
    if max <= 0 { max = DefaultMaxRetry }
    log := p.logger()
    first := prompt
    var (
        lastErr error
        lastRaw string
    )
    for attempt := 1; attempt <= max; attempt++ {
        if attempt > 1 {
            prompt = first
            if lastRaw != "" {
                prompt = prompts.Repair(query, p.Registry.Catalog(), planSchema(), lastRaw, lastErr.Error())
            }
        }
        emit.Send(models.EventMessage, 0, fmt.Sprintf("planning attempt %d/%d", attempt, max))
        raw, err := p.Model.Complete(ctx, prompt, emit.Stream(models.EventPlan, 0))
        if err == nil {
            lastRaw = raw
            var coll *blueprint.StepCollection
            coll, err = p.materialize(ctx, query, raw, emit)
            if err == nil {
                for _, w := range UnsatisfiedInputs(coll) { log.Warn("plan dataflow", zap.String("detail", w)) }
                if previous != nil { markChanged(previous, coll) }
                if b, mErr := json.Marshal(coll); mErr == nil { emit.Send(models.EventPlan, 0, string(b)) }
                log.Info("plan built", zap.Int("steps", coll.Len()), zap.Int("attempt", attempt))
                return coll, nil
            }
        } else {
            lastRaw = ""
        }
        if ctxErr := ctx.Err(); ctxErr != nil { return nil, ctxErr }
        var uk *models.UnknownStepKindError
        if errors.As(err, &uk) { return nil, err }
        lastErr = err
        log.Warn("plan attempt failed", zap.Int("attempt", attempt), zap.Error(err))
        emit.Send(models.EventError, 0, err.Error())
    }
    return nil, &models.PlanBuildExhaustedError{Attempts: max, LastError: lastErr.Error()}
}

// materialize parses and validates the whole plan before building any step.
func (p *BlueprintPlanner) materialize(ctx context.Context, query, raw string, emit models.Emitter) (*blueprint.StepCollection, error) {
    summary, entries, err := ParsePlan(raw)
    if err != nil { return nil, err }
    resolved, err := p.validate(entries)
    if err != nil { return nil, err }

    coll := blueprint.NewCollection(query)
    if summary == "" { summary = truncateRunes(query, 120) }
    coll.SetQuerySummary(summary)
    env := kinds.Env{Model: p.Model, Docs: p.Docs, Emit: emit}
    for i, e := range entries {
        step, err := resolved[i].Info(ctx, env, e)
        if err != nil {
            var sv *models.StepValidationError
            if errors.As(err, &sv) { sv.Index, sv.Kind = i, e.Kind }
            return nil, err
        }
        step.Kind = e.Kind
        coll.AddStep(step)
    }
    return coll, nil
}

func (p *BlueprintPlanner) validate(entries []models.PlanEntry) ([]kinds.Kind, error) {
    reserved := map[string]bool{}
    for _, k := range store.ReservedKeys() { reserved[k] = true }
    produced := map[string]int{}
    out := make([]kinds.Kind, len(entries))
    for i := range entries {
        e := &entries[i]
        e.Kind = strings.TrimSpace(e.Kind)
        if e.Kind == "" { return nil, &models.StepValidationError{Index: i, Reason: "missing kind"} }
        if strings.TrimSpace(e.Task) == "" { return nil, &models.StepValidationError{Index: i, Kind: e.Kind, Reason: "missing task"} }
        k, err := p.Registry.Resolve(e.Kind)
        if err != nil { return nil, err }
        for _, key := range e.ProducedData {
            key = strings.TrimSpace(key)
            if reserved[key] || strings.HasSuffix(key, "_summary") {
                return nil, &models.StepValidationError{Index: i, Kind: e.Kind, Reason: fmt.Sprintf("produced key %q is reserved", key)}
            }
            if kinds.IsDerivedKey(key) {
                return nil, &models.StepValidationError{Index: i, Kind: e.Kind, Reason: fmt.Sprintf("produced key %q is assigned by position to analysis and export steps; pick another name", key)}
            }
            if j, dup := produced[key]; dup {
                return nil, &models.StepValidationError{Index: i, Kind: e.Kind, Reason: fmt.Sprintf("produced key %q is already produced by entry %d", key, j+1)}
            }
            produced[key] = i
        }
        if err := k.Validate(*e); err != nil {
            return nil, &models.StepValidationError{Index: i, Kind: e.Kind, Reason: err.Error()}
        }
        out[i] = k
    }
    return out, nil
}

func (p *BlueprintPlanner) logger() *zap.Logger {
    if p.Log == nil { return zap.NewNop() }
    return p.Log
}

// ParsePlan extracts a plan from a model reply. Both {"query_summary", "steps"}
// objects and bare arrays are accepted, fenced or not.
func ParsePlan(raw string) (string, []models.PlanEntry, error) {
    text := normalizeJSONText(raw)
    if text == "" { return "", nil, &models.PlanParseError{Reason: "no JSON object or array found", Raw: raw} }
    var (
        summary string
        entries []models.PlanEntry
    )
    if strings.HasPrefix(text, "{") {
        var wrapper struct {
            QuerySummary string             `json:"query_summary"`
            Steps        []models.PlanEntry `json:"steps"`
        }
        if err := json.Unmarshal([]byte(text), &wrapper); err != nil {
            return "", nil, &models.PlanParseError{Reason: err.Error(), Raw: raw}
        }
        summary, entries = strings.TrimSpace(wrapper.QuerySummary), wrapper.Steps
    } else if err := json.Unmarshal([]byte(text), &entries); err != nil {
        return "", nil, &models.PlanParseError{Reason: err.Error(), Raw: raw}
    }
    if len(entries) == 0 { return "", nil, &models.PlanParseError{Reason: "plan has no steps", Raw: raw} }
    return summary, entries, nil
}

// normalizeJSONText strips code fences and returns the first balanced JSON
// object or array in s, or "" when there is none.
func normalizeJSONText(s string) string {
    t := strings.TrimSpace(s)
    if strings.HasPrefix(t, "```") {
        t = strings.TrimPrefix(t, "```")
        if idx := strings.IndexByte(t, '\n'); idx != -1 {
            t = t[idx+1:]
        }
        if j := strings.LastIndex(t, "```"); j != -1 {
            t = t[:j]
        }
        t = strings.TrimSpace(t)
    }
    return extractJSON(t)
}

// extractJSON finds the first top-level JSON object or array, skipping
// brackets inside strings.
func extractJSON(s string) string {
    start := strings.IndexAny(s, "[{")
    if start == -1 { return "" }
    depth := 0
    inStr, esc := false, false
    for i := start; i < len(s); i++ {
        c := s[i]
        if inStr {
            switch {
            case esc:
                esc = false
            case c == '\\':
                esc = true
            case c == '"':
                inStr = false
            }
            continue
        }
        switch c {
        case '"':
            inStr = true
        case '[', '{':
            depth++
        case ']', '}':
            depth--
            if depth == 0 { return s[start : i+1] }
        }
    }
    return ""
}

func planSchema() string {
    r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
    b, err := json.MarshalIndent(r.Reflect(&models.PlanEntry{}), "", "  ")
    if err != nil { return "{}" }
    return string(b)
}

// UnsatisfiedInputs lists required keys that no earlier step produces. The
// planner only logs them; executors enforce inputs at run time.
func UnsatisfiedInputs(coll *blueprint.StepCollection) []string {
    var out []string
    available := map[string]bool{}
    for _, s := range coll.ListSteps() {
        for _, k := range s.RequiredData {
            if !available[k] { out = append(out, fmt.Sprintf("step %d requires %q which no earlier step produces", s.SequenceNumber, k)) }
        }
        for _, k := range s.ProducedData { available[k] = true }
        for _, k := range kinds.DerivedKeys(s) { available[k] = true }
    }
    return out
}

func markChanged(prev, next *blueprint.StepCollection) {
    for i := 1; i <= next.Len(); i++ {
        old, err := prev.GetStep(i)
        _ = next.UpdateStep(i, func(s *models.Step) { s.Changed = err != nil || !old.SameContent(*s) })
    }
}

func truncateRunes(s string, n int) string {
    r := []rune(strings.TrimSpace(s))
    if len(r) <= n { return string(r) }
    return string(r[:n])
}
