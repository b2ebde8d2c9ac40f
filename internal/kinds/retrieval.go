package kinds

import (
    "context"
    "fmt"
    "strings"

    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/prompts"
)

const TagRetrieval = "retrieval"

func Retrieval() Kind {
    return Kind{
        Tag:         TagRetrieval,
        Description: "fetch or read external data (web pages, HTTP APIs, local documents) and store it under produced_data",
        FixBound:    ExtendedFixBound,
        Validate:    requireProduced,
        Info:        retrievalInfo,
        CodeGen: func(step models.Step, env Env) CodeGenerator {
            return &promptBuilder{
                step:     step,
                contract: step.ProducedData,
                guidance: "Fetch the data with the functions listed above and store each produced key. " +
                    "Prefer structured values (slices of maps, maps, numbers) over raw text when the data is tabular.",
                docs: docsFor(env, step.SelectedFunctions...),
            }
        },
        NewExecutor: newVerifier(producedKeys, nonNilProduced),
    }
}

// retrievalInfo resolves the functions a retrieval step may use. Names the
// plan or the model give that are not in the catalog are dropped.
func retrievalInfo(ctx context.Context, env Env, e models.PlanEntry) (models.Step, error) {
    step := materialize(e)
    step.Category = strings.TrimSpace(e.Category)
    if env.Docs == nil { return step, nil }

    if step.Category != "" && !contains(env.Docs.Categories(), step.Category) {
        return step, &models.StepValidationError{Kind: e.Kind, Reason: fmt.Sprintf("unknown function category %q", step.Category)}
    }
    docs, order := env.Docs.Descriptions(step.Category)

    picked := e.SelectedFunctions
    if len(picked) == 0 && env.Model != nil {
        reply, err := env.Model.Complete(ctx, prompts.SelectFunctions(step.Description, docs, order), env.Emit.Stream(models.EventMessage, 0))
        if err != nil { return step, err }
        picked = strings.FieldsFunc(reply, func(r rune) bool { return r == ',' || r == '\n' || r == ' ' || r == '`' })
    }
    for _, name := range picked {
        name = strings.Trim(strings.TrimSpace(name), `"'.-*`)
        name = strings.TrimPrefix(name, "tools.")
        if _, ok := docs[name]; ok && !contains(step.SelectedFunctions, name) {
            step.SelectedFunctions = append(step.SelectedFunctions, name)
        }
    }
    if len(step.SelectedFunctions) == 0 {
        return step, &models.StepValidationError{Kind: e.Kind, Reason: "no known functions selected for the task"}
    }
    return step, nil
}

func contains(list []string, s string) bool {
    for _, v := range list { if v == s { return true } }
    return false
}
