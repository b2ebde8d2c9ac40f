package orchestrator

import (
    "context"
    "errors"
    "fmt"
    "sort"
    "sync"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/example/blueprint-engine/internal/agents"
    "github.com/example/blueprint-engine/internal/blueprint"
    "github.com/example/blueprint-engine/internal/models"
    "github.com/example/blueprint-engine/internal/storage"
    "github.com/example/blueprint-engine/internal/store"
)

var ErrRunNotFound = errors.New("run not found")

// Run is one query's trip through the engine.
type Run struct {
    ID        string
    Query     string
    Status    models.Status
    Blueprint *blueprint.Blueprint
    Report    string
    Error     string
    CreatedAt time.Time
    UpdatedAt time.Time
}

// SnapshotRepository persists encoded blueprints.
type SnapshotRepository interface {
    Save(ctx context.Context, s storage.Snapshot) (storage.Snapshot, error)
    Get(ctx context.Context, id string) (storage.Snapshot, error)
}

// Orchestrator drives runs: plan, execute every step in order, report. Only
// one run executes at a time because all runs share one store.
type Orchestrator struct {
    Planner   agents.Planner
    Steps     *agents.StepExecutor
    Reporter  *agents.Reporter
    Store     *store.Store
    Snapshots SnapshotRepository
    MaxRetry  int
    FixBounds map[string]int
    Log       *zap.Logger

    live sync.Mutex

    runsMu sync.RWMutex
    runs   map[string]*Run

    hub *Hub
}

func New(planner agents.Planner, steps *agents.StepExecutor, reporter *agents.Reporter, s *store.Store, log *zap.Logger) *Orchestrator {
    if log == nil { log = zap.NewNop() }
    return &Orchestrator{
        Planner:  planner,
        Steps:    steps,
        Reporter: reporter,
        Store:    s,
        MaxRetry: agents.DefaultMaxRetry,
        Log:      log,
        runs:     map[string]*Run{},
        hub:      NewHub(),
    }
}

func (o *Orchestrator) CreateRun(query string) Run {
    now := time.Now().UTC()
    r := &Run{ID: uuid.NewString(), Query: query, Status: models.StatusPending, CreatedAt: now, UpdatedAt: now}
    o.runsMu.Lock()
    o.runs[r.ID] = r
    o.runsMu.Unlock()
    o.Log.Info("run created", zap.String("run_id", r.ID))
    return *r
}

// GetRun returns a copy of the run's current state.
func (o *Orchestrator) GetRun(id string) (Run, bool) {
    o.runsMu.RLock()
    defer o.runsMu.RUnlock()
    r, ok := o.runs[id]
    if !ok { return Run{}, false }
    return *r, true
}

// ListRuns returns every run, oldest first.
func (o *Orchestrator) ListRuns() []Run {
    o.runsMu.RLock()
    out := make([]Run, 0, len(o.runs))
    for _, r := range o.runs { out = append(out, *r) }
    o.runsMu.RUnlock()
    sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
    return out
}

func (o *Orchestrator) Subscribe(runID string) (<-chan models.Event, func()) {
    return o.hub.Subscribe(runID)
}

// Run creates a run for query and takes it all the way to a report.
func (o *Orchestrator) Run(ctx context.Context, query string) (Run, error) {
    r := o.CreateRun(query)
    err := o.Start(ctx, r.ID)
    out, _ := o.GetRun(r.ID)
    return out, err
}

// PlanOnly builds a plan for the run without executing it.
func (o *Orchestrator) PlanOnly(ctx context.Context, id string) (*blueprint.StepCollection, error) {
    o.live.Lock()
    defer o.live.Unlock()
    defer o.hub.Close(id)
    return o.plan(ctx, id)
}

// ModifyPlan applies a change request to the run's plan. On failure the
// current plan stays in place.
func (o *Orchestrator) ModifyPlan(ctx context.Context, id, request string) (*blueprint.StepCollection, error) {
    o.live.Lock()
    defer o.live.Unlock()
    defer o.hub.Close(id)
    r, err := o.lookup(id)
    if err != nil { return nil, err }
    bp := o.blueprintOf(r)
    if bp == nil { return nil, fmt.Errorf("run %s has no plan to modify", id) }
    next, err := o.Planner.Modify(ctx, bp.Current(), request, bp.MaxRetry, o.hub.Emitter(id))
    if err != nil {
        o.Log.Warn("plan modify failed", zap.String("run_id", id), zap.Error(err))
        return nil, err
    }
    bp.Replan(next)
    o.update(r, func(r *Run) { r.Status = models.StatusPlanned })
    return next, nil
}

// ExecutePlan runs an existing plan without planning again.
func (o *Orchestrator) ExecutePlan(ctx context.Context, id string) error {
    o.live.Lock()
    defer o.live.Unlock()
    defer o.hub.Close(id)
    return o.execute(ctx, id)
}

// Start plans the run if it has no plan yet, then executes it.
func (o *Orchestrator) Start(ctx context.Context, id string) error {
    o.live.Lock()
    defer o.live.Unlock()
    defer o.hub.Close(id)
    r, err := o.lookup(id)
    if err != nil { return err }
    if o.blueprintOf(r) == nil {
        if _, err := o.plan(ctx, id); err != nil { return err }
    }
    return o.execute(ctx, id)
}

func (o *Orchestrator) plan(ctx context.Context, id string) (*blueprint.StepCollection, error) {
    r, err := o.lookup(id)
    if err != nil { return nil, err }
    emit := o.hub.Emitter(id)
    coll, err := o.Planner.Build(ctx, r.Query, o.MaxRetry, emit)
    if err != nil {
        o.fail(r, emit, err)
        return nil, err
    }
    bp := blueprint.New(coll, o.MaxRetry)
    bp.FixBounds = copyBounds(o.FixBounds)
    o.update(r, func(r *Run) {
        r.Blueprint = bp
        r.Status = models.StatusPlanned
        r.Error = ""
    })
    o.Log.Info("run planned", zap.String("run_id", id), zap.Int("steps", coll.Len()))
    return coll, nil
}

// execute runs every step in order on a cleared store. The first step
// failure aborts the run; completed steps keep their store writes.
func (o *Orchestrator) execute(ctx context.Context, id string) error {
    r, err := o.lookup(id)
    if err != nil { return err }
    bp := o.blueprintOf(r)
    if bp == nil || bp.Current().Len() == 0 { return fmt.Errorf("run %s has no plan to execute", id) }
    plan := bp.Current()
    emit := o.hub.Emitter(id)
    log := o.Log.With(zap.String("run_id", id))

    o.Store.Clear()
    o.update(r, func(r *Run) {
        r.Status = models.StatusRunning
        r.Report, r.Error = "", ""
    })
    for i := 1; i <= plan.Len(); i++ {
        _ = plan.UpdateStep(i, func(s *models.Step) { s.Status = models.StatusPending })
    }

    for seq := 1; seq <= plan.Len(); seq++ {
        _ = plan.UpdateStep(seq, func(s *models.Step) { s.Status = models.StatusRunning })
        step, err := plan.GetStep(seq)
        if err != nil { return err }
        emit.Send(models.EventMessage, seq, fmt.Sprintf("step %d/%d (%s): %s", seq, plan.Len(), step.Kind, step.Description))
        start := time.Now()
        if err := o.Steps.Execute(ctx, bp, step, emit); err != nil {
            _ = plan.UpdateStep(seq, func(s *models.Step) { s.Status = models.StatusFailed })
            log.Error("step failed", zap.Int("step", seq), zap.Error(err))
            o.fail(r, emit, err)
            return err
        }
        _ = plan.UpdateStep(seq, func(s *models.Step) {
            s.Status = models.StatusSuccess
            s.Changed = false
        })
        log.Info("step done", zap.Int("step", seq), zap.Duration("took", time.Since(start)))
    }

    report, err := o.Reporter.Report(ctx, plan, emit)
    if err != nil {
        o.fail(r, emit, err)
        return err
    }
    o.update(r, func(r *Run) {
        r.Report = report
        r.Status = models.StatusSuccess
    })
    log.Info("run finished", zap.Int("steps", plan.Len()))
    return nil
}

// SaveSnapshot stores the run's blueprint under name.
func (o *Orchestrator) SaveSnapshot(ctx context.Context, runID, name string) (storage.Snapshot, error) {
    if o.Snapshots == nil { return storage.Snapshot{}, errors.New("no snapshot repository configured") }
    r, err := o.lookup(runID)
    if err != nil { return storage.Snapshot{}, err }
    bp := o.blueprintOf(r)
    if bp == nil { return storage.Snapshot{}, fmt.Errorf("run %s has no plan to save", runID) }
    plan := bp.Current()
    blob, err := bp.Encode()
    if err != nil { return storage.Snapshot{}, err }
    if name == "" { name = plan.QuerySummary() }
    return o.Snapshots.Save(ctx, storage.Snapshot{Name: name, Query: plan.Query(), Steps: plan.Len(), Blob: blob})
}

// LoadSnapshot creates a planned run from a saved blueprint. Its stored
// sources are reused when the run executes.
func (o *Orchestrator) LoadSnapshot(ctx context.Context, snapshotID string) (Run, error) {
    if o.Snapshots == nil { return Run{}, errors.New("no snapshot repository configured") }
    snap, err := o.Snapshots.Get(ctx, snapshotID)
    if err != nil { return Run{}, err }
    bp, err := blueprint.Decode(snap.Blob)
    if err != nil { return Run{}, err }
    r := o.CreateRun(bp.Plan.Query())
    o.runsMu.Lock()
    live := o.runs[r.ID]
    live.Blueprint = bp
    live.Status = models.StatusPlanned
    out := *live
    o.runsMu.Unlock()
    o.Log.Info("snapshot loaded", zap.String("snapshot_id", snapshotID), zap.String("run_id", r.ID))
    return out, nil
}

func (o *Orchestrator) lookup(id string) (*Run, error) {
    o.runsMu.RLock()
    defer o.runsMu.RUnlock()
    r, ok := o.runs[id]
    if !ok { return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id) }
    return r, nil
}

func (o *Orchestrator) blueprintOf(r *Run) *blueprint.Blueprint {
    o.runsMu.RLock()
    defer o.runsMu.RUnlock()
    return r.Blueprint
}

func (o *Orchestrator) update(r *Run, fn func(*Run)) {
    o.runsMu.Lock()
    fn(r)
    r.UpdatedAt = time.Now().UTC()
    o.runsMu.Unlock()
}

func (o *Orchestrator) fail(r *Run, emit models.Emitter, err error) {
    o.update(r, func(r *Run) {
        r.Status = models.StatusFailed
        r.Error = err.Error()
    })
    emit.Send(models.EventError, 0, err.Error())
}

func copyBounds(in map[string]int) map[string]int {
    if len(in) == 0 { return nil }
    out := make(map[string]int, len(in))
    for k, v := range in { out[k] = v }
    return out
}
