package kinds

import (
    "context"
    "fmt"
    "strings"

    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/prompts"
)

// promptBuilder is the CodeGenerator every built-in kind uses; kinds differ
// only in contract, guidance and documented functions.
type promptBuilder struct {
    step     models.Step
    contract []string
    guidance string
    docs     string
}

func (p *promptBuilder) Contract() []string { return append([]string(nil), p.contract...) }

func (p *promptBuilder) Prompt(query string, summaries []prompts.DataSummary, allowed []string) string {
    return prompts.Code(prompts.CodeRequest{
        Query:     query,
        Step:      p.step,
        Guidance:  p.guidance,
        Keys:      p.contract,
        Summaries: summaries,
        Docs:      p.docs,
        Allowed:   allowed,
    })
}

// materialize copies the fields shared by every kind.
func materialize(e models.PlanEntry) models.Step {
    return models.Step{
        Kind:         e.Kind,
        Description:  strings.TrimSpace(e.Task),
        RequiredData: dedupe(e.RequiredData),
        ProducedData: dedupe(e.ProducedData),
        Status:       models.StatusPlanned,
    }
}

func plainInfo(_ context.Context, _ Env, e models.PlanEntry) (models.Step, error) {
    return materialize(e), nil
}

func dedupe(keys []string) []string {
    var out []string
    seen := map[string]bool{}
    for _, k := range keys {
        k = strings.TrimSpace(k)
        if k == "" || seen[k] { continue }
        seen[k] = true
        out = append(out, k)
    }
    return out
}

func docsFor(env Env, names ...string) string {
    if env.Docs == nil || len(names) == 0 { return "" }
    return env.Docs.GetDocs(names)
}

func requireProduced(e models.PlanEntry) error {
    if len(dedupe(e.ProducedData)) == 0 { return fmt.Errorf("produced_data must name at least one key") }
    return nil
}

func requireInputs(e models.PlanEntry) error {
    if len(dedupe(e.RequiredData)) == 0 { return fmt.Errorf("required_data must name at least one key") }
    return nil
}

// DerivedKeys lists the keys a step adds beyond its produced_data.
func DerivedKeys(step models.Step) []string {
    switch step.Kind {
    case TagAnalysis:
        return []string{AnalysisKey(step.SequenceNumber)}
    case TagExport:
        return []string{ExportKey(step.SequenceNumber)}
    }
    return nil
}
