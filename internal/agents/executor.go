package agents

import (
    "context"

    "github.com/example/blueprint-engine/internal/blueprint"
    "github.com/example/blueprint-engine/internal/kinds"
    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/store"
)

// StepExecutor runs one step end to end: synthesis, then the kind's own
// executor, which may send the program back through Fix.
type StepExecutor struct {
    Registry *kinds.Registry
    Synth    *CodeSynthesisLoop
    Store    *store.Store
    Env      kinds.Env
}

// Execute records the step's final artifact on bp. Bounds in bp.FixBounds
// override the kind's default.
func (e *StepExecutor) Execute(ctx context.Context, bp *blueprint.Blueprint, step models.Step, emit models.Emitter) error {
    k, err := e.Registry.Resolve(step.Kind)
    if err != nil { return err }
    env := e.Env
    env.Emit = emit
    job := Job{
        Query: bp.Current().Query(),
        Step:  step,
        Gen:   k.CodeGen(step, env),
        Bound: k.FixBound,
    }
    if n, ok := bp.FixBounds[step.Kind]; ok && n > 0 { job.Bound = n }
    if prior, ok := bp.Artifact(step.SequenceNumber); ok && !step.Changed { job.Prior = prior }

    art, _, err := e.Synth.Synthesize(ctx, job, emit)
    if err != nil { return err }
    bp.SetArtifact(art)

    fix := func(ctx context.Context, cause error) (*models.Artifact, error) {
        emit.Send(models.EventError, step.SequenceNumber, cause.Error())
        next, _, err := e.Synth.Repair(ctx, job, art.Source, cause, emit)
        if err != nil { return nil, err }
        art = next
        bp.SetArtifact(art)
        return art, nil
    }
    return k.NewExecutor(e.Store).Execute(ctx, step, art, fix)
}
