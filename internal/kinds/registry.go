// Package kinds holds the static table of step kinds. Each kind bundles its
// plan-entry validation, the generator that turns an entry into a Step, the
// code prompt builder and the executor that re-checks its post-conditions.
package kinds

import (
    "context"
    "fmt"
    "regexp"
    "sync"

    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/prompts"
    "github.com/example/blueprint-engine/internal/providers/llm"
    "github.com/example/blueprint-engine/internal/store"
)

// DocsProvider describes the functions generated programs may call.
type DocsProvider interface {
    GetDocs(names []string) string
    Categories() []string
    Descriptions(category string) (map[string]string, []string)
}

// Env is what info and code generators may consult.
type Env struct {
    Model llm.LanguageModel
    Docs  DocsProvider
    Emit  models.Emitter
}

// InfoGenerator materializes one validated plan entry into a Step.
type InfoGenerator func(ctx context.Context, env Env, entry models.PlanEntry) (models.Step, error)

// CodeGenerator builds the code prompt for one step and names the store keys
// its program must add.
type CodeGenerator interface {
    Contract() []string
    Prompt(query string, summaries []prompts.DataSummary, allowed []string) string
}

type CodeGenFactory func(step models.Step, env Env) CodeGenerator

// Fixer asks for a corrected program after cause and runs it until the
// generic post-conditions hold again.
type Fixer func(ctx context.Context, cause error) (*models.Artifact, error)

// Executor re-validates a step after its program ran and may request fixes.
type Executor interface {
    Execute(ctx context.Context, step models.Step, art *models.Artifact, fix Fixer) error
}

type ExecutorFactory func(s *store.Store) Executor

type Kind struct {
    Tag         string
    Description string
    FixBound    int
    Validate    func(models.PlanEntry) error
    Info        InfoGenerator
    CodeGen     CodeGenFactory
    NewExecutor ExecutorFactory
}

type Registry struct {
    mu    sync.RWMutex
    kinds map[string]Kind
    order []string
}

func NewRegistry() *Registry {
    return &Registry{kinds: map[string]Kind{}}
}

// Register adds k. Tags are unique and every function slot must be set.
func (r *Registry) Register(k Kind) error {
    if k.Tag == "" { return fmt.Errorf("register kind: empty tag") }
    if k.Info == nil || k.CodeGen == nil || k.NewExecutor == nil {
        return fmt.Errorf("register kind %q: info, code generator and executor are required", k.Tag)
    }
    if k.Validate == nil { k.Validate = func(models.PlanEntry) error { return nil } }
    if k.FixBound <= 0 { k.FixBound = DefaultFixBound }
    r.mu.Lock()
    defer r.mu.Unlock()
    if _, ok := r.kinds[k.Tag]; ok { return fmt.Errorf("register kind %q: already registered", k.Tag) }
    r.kinds[k.Tag] = k
    r.order = append(r.order, k.Tag)
    return nil
}

func (r *Registry) Resolve(tag string) (Kind, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    k, ok := r.kinds[tag]
    if !ok { return Kind{}, &models.UnknownStepKindError{Kind: tag} }
    return k, nil
}

// Tags returns kind tags in registration order.
func (r *Registry) Tags() []string {
    r.mu.RLock()
    defer r.mu.RUnlock()
    return append([]string(nil), r.order...)
}

// Catalog is the {tag, description} list shown to the planner.
func (r *Registry) Catalog() []prompts.KindInfo {
    r.mu.RLock()
    defer r.mu.RUnlock()
    out := make([]prompts.KindInfo, 0, len(r.order))
    for _, t := range r.order { out = append(out, prompts.KindInfo{Tag: t, Description: r.kinds[t].Description}) }
    return out
}

func (r *Registry) SetFixBound(tag string, n int) error {
    if n <= 0 { return fmt.Errorf("fix bound for %q must be positive, got %d", tag, n) }
    r.mu.Lock()
    defer r.mu.Unlock()
    k, ok := r.kinds[tag]
    if !ok { return &models.UnknownStepKindError{Kind: tag} }
    k.FixBound = n
    r.kinds[tag] = k
    return nil
}

// FixBounds returns the current bound of every kind.
func (r *Registry) FixBounds() map[string]int {
    r.mu.RLock()
    defer r.mu.RUnlock()
    out := make(map[string]int, len(r.kinds))
    for t, k := range r.kinds { out[t] = k.FixBound }
    return out
}

var derivedKey = regexp.MustCompile(`^(analysis_result|export_file)_\d+$`)

// IsDerivedKey reports whether key has the shape of the keys analysis and
// export steps are given from their position.
func IsDerivedKey(key string) bool { return derivedKey.MatchString(key) }

const (
    DefaultFixBound  = 3
    ExtendedFixBound = 8
)

// DefaultRegistry returns the built-in kinds.
func DefaultRegistry() *Registry {
    r := NewRegistry()
    for _, k := range []Kind{Retrieval(), Analysis(), Export(), CodeGeneration(), Custom()} {
        if err := r.Register(k); err != nil { panic(err) }
    }
    return r
}
