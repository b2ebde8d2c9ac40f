package main

import (
    "context"
    "fmt"

    "go.uber.org/zap"

    "github.com/example/blueprint-engine/internal/agents"
    "github.com/example/blueprint-engine/internal/config"
    "github.com/example/blueprint-engine/internal/interpreter"
    "github.com/example/blueprint-engine/internal/kinds"
    "github.com/example/blueprint-engine/internal/orchestrator"
    "github.com/example/blueprint-engine/internal/providers/llm"
    "github.com/example/blueprint-engine/internal/storage"
    "github.com/example/blueprint-engine/internal/store"
    "github.com/example/blueprint-engine/internal/tools"
)

type engine struct {
    orch  *orchestrator.Orchestrator
    repo  *storage.Repository
    store *store.Store
}

func (e *engine) Close() error { return e.repo.Close() }

// buildEngine wires config into one orchestrator with its own store.
func buildEngine(ctx context.Context, cfg config.Config, log *zap.Logger) (*engine, error) {
    model, err := llm.New(ctx, llm.Options{
        Provider:     cfg.LLM.Provider,
        Model:        cfg.LLM.Model,
        OpenAIKey:    cfg.LLM.OpenAIKey,
        OpenAIBase:   cfg.LLM.OpenAIBase,
        AnthropicKey: cfg.LLM.AnthropicKey,
        GoogleKey:    cfg.LLM.GoogleKey,
        OllamaURL:    cfg.LLM.OllamaURL,
        Timeout:      cfg.LLM.Timeout,
        Debug:        cfg.LLM.Debug,
        Logger:       log.Named("llm"),
    })
    if err != nil { return nil, err }

    catalog := tools.NewCatalog(&tools.Toolbox{
        Client:      model,
        ExportDir:   cfg.Tools.ExportDir,
        HTTPTimeout: cfg.Tools.HTTPTimeout,
        MaxBytes:    cfg.Tools.MaxBytes,
        UserAgent:   cfg.Tools.UserAgent,
        Log:         log.Named("tools"),
    })
    runner := interpreter.New(cfg.Synthesis.ExecTimeout, log.Named("interpreter"))
    st := store.New(nil, map[string]any{store.KeyModel: model, store.KeyInterpreter: runner})

    reg := kinds.DefaultRegistry()
    for tag, n := range cfg.FixBounds(reg.Tags()) {
        if err := reg.SetFixBound(tag, n); err != nil { return nil, err }
    }

    repo, err := storage.Open(cfg.Storage.Path, log.Named("storage"))
    if err != nil { return nil, err }

    planner := agents.NewBlueprintPlanner(model, reg, catalog, cfg.Planner.MaxRetry, log.Named("planner"))
    synth := &agents.CodeSynthesisLoop{
        Model:            model,
        Store:            st,
        Runner:           runner,
        Tools:            catalog,
        GenerateAttempts: cfg.Synthesis.GenerateAttempts,
        Log:              log.Named("synthesis"),
    }
    steps := &agents.StepExecutor{Registry: reg, Synth: synth, Store: st, Env: kinds.Env{Model: model, Docs: catalog}}
    reporter := &agents.Reporter{Model: model, Store: st, Log: log.Named("report")}

    orch := orchestrator.New(planner, steps, reporter, st, log.Named("orchestrator"))
    orch.Snapshots = repo
    orch.MaxRetry = cfg.Planner.MaxRetry
    orch.FixBounds = reg.FixBounds()
    log.Debug("engine ready", zap.String("provider", fmt.Sprintf("%T", model)), zap.Strings("kinds", reg.Tags()))
    return &engine{orch: orch, repo: repo, store: st}, nil
}
