package kinds

import (
    "fmt"

    "github.com/example/blueprint-engine/internal/models"
)

const (
    TagCodeGeneration = "code_generation"
    TagCustom         = "custom"
)

func CodeGeneration() Kind {
    return Kind{
        Tag:         TagCodeGeneration,
        Description: "transform or combine stored data with computed Go code and store the results under produced_data",
        FixBound:    DefaultFixBound,
        Validate:    requireProduced,
        Info:        plainInfo,
        CodeGen: func(step models.Step, env Env) CodeGenerator {
            return &promptBuilder{
                step:     step,
                contract: step.ProducedData,
                guidance: "Compute the produced keys from the input data. Keep values structured so later steps can use them.",
            }
        },
        NewExecutor: newVerifier(producedKeys, nonNilProduced),
    }
}

func Custom() Kind {
    return Kind{
        Tag:         TagCustom,
        Description: "any other self-contained task; produced_data may be empty",
        FixBound:    DefaultFixBound,
        Validate: func(e models.PlanEntry) error {
            if len(e.Task) < 3 { return fmt.Errorf("task is too short to act on") }
            return nil
        },
        Info: plainInfo,
        CodeGen: func(step models.Step, env Env) CodeGenerator {
            var names []string
            if env.Docs != nil { _, names = env.Docs.Descriptions("") }
            return &promptBuilder{step: step, contract: step.ProducedData, docs: docsFor(env, names...)}
        },
        NewExecutor: newVerifier(producedKeys, nil),
    }
}
