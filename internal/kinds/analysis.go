package kinds

import (
    "fmt"
    "strings"

    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/store"
)

const TagAnalysis = "analysis"

// AnalysisKey is the derived key an analysis step stores its findings under.
func AnalysisKey(seq int) string { return fmt.Sprintf("analysis_result_%d", seq) }

func analysisContract(step models.Step) []string {
    return append(append([]string(nil), step.ProducedData...), AnalysisKey(step.SequenceNumber))
}

func Analysis() Kind {
    return Kind{
        Tag:         TagAnalysis,
        Description: "compute findings from data produced by earlier steps; results become part of the final report",
        FixBound:    ExtendedFixBound,
        Validate:    requireInputs,
        Info:        plainInfo,
        CodeGen: func(step models.Step, env Env) CodeGenerator {
            key := AnalysisKey(step.SequenceNumber)
            return &promptBuilder{
                step:     step,
                contract: analysisContract(step),
                guidance: fmt.Sprintf("Analyze the input data and compute concrete results. Store a plain-text string with the findings, "+
                    "citing the numbers you computed, under %q. Store any other produced keys as well.", key),
                docs: docsFor(env, "Summarize", "Ask"),
            }
        },
        NewExecutor: newVerifier(analysisContract, analysisResult),
    }
}

func analysisResult(s *store.Store, step models.Step) error {
    key := AnalysisKey(step.SequenceNumber)
    v, err := s.Get(key)
    if err != nil { return err }
    str, ok := v.(string)
    if !ok { return fmt.Errorf("%s must be a string, got %T", key, v) }
    if strings.TrimSpace(str) == "" { return fmt.Errorf("%s is empty", key) }
    return nil
}
