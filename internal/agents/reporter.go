package agents

import (
    "context"
    "fmt"
    "strings"

    "go.uber.org/zap"

    "github.com/example/blueprint-engine/internal/blueprint"
    "github.com/example/blueprint-engine/internal/kinds"
    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/prompts"
    "github.com/example/blueprint-engine/internal/providers/llm"
    "github.com/example/blueprint-engine/internal/store"
)

// Reporter asks the model for the final answer from what the steps stored.
type Reporter struct {
    Model llm.LanguageModel
    Store *store.Store
    Log   *zap.Logger
}

// Findings collects every analysis result. Without analysis steps it falls
// back to descriptions of each produced key.
func (r *Reporter) Findings(plan *blueprint.StepCollection) []prompts.Finding {
    var out []prompts.Finding
    for _, s := range plan.StepsOfKind(kinds.TagAnalysis) {
        v, err := r.Store.Get(kinds.AnalysisKey(s.SequenceNumber))
        if err != nil { continue }
        out = append(out, prompts.Finding{Step: s.SequenceNumber, Description: s.Description, Result: fmt.Sprint(v)})
    }
    if len(out) > 0 { return out }
    for _, s := range plan.ListSteps() {
        var parts []string
        for _, k := range append(append([]string(nil), s.ProducedData...), kinds.DerivedKeys(s)...) {
            d, ok := r.Store.Describe(k)
            if !ok { continue }
            parts = append(parts, fmt.Sprintf("%s:\n%s", k, d))
        }
        if len(parts) > 0 {
            out = append(out, prompts.Finding{Step: s.SequenceNumber, Description: s.Description, Result: strings.Join(parts, "\n\n")})
        }
    }
    return out
}

// Report streams the final report as report events and returns it.
func (r *Reporter) Report(ctx context.Context, plan *blueprint.StepCollection, emit models.Emitter) (string, error) {
    findings := r.Findings(plan)
    if len(findings) == 0 {
        return "", fmt.Errorf("report: no step results in the store")
    }
    text, err := r.Model.Complete(ctx, prompts.Report(plan.Query(), plan.QuerySummary(), findings), emit.Stream(models.EventReport, 0))
    if err != nil { return "", fmt.Errorf("report: %w", err) }
    if r.Log != nil { r.Log.Info("report ready", zap.Int("findings", len(findings)), zap.Int("bytes", len(text))) }
    emit.Send(models.EventReport, 0, text)
    return text, nil
}
