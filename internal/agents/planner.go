package agents

import (
    "context"
    "fmt"

    "github.com/example/blueprint-engine/internal/blueprint"
    "github.com/example/blueprint-engine/internal/models"
)

// Planner produces and revises step collections. maxRetry bounds the model
// attempts for one call; zero means the planner's own default.
type Planner interface {
    Build(ctx context.Context, query string, maxRetry int, emit models.Emitter) (*blueprint.StepCollection, error)
    Modify(ctx context.Context, current *blueprint.StepCollection, request string, maxRetry int, emit models.Emitter) (*blueprint.StepCollection, error)
}

// StaticPlanner returns a fixed list of steps for every query. It is used
// for replays and tests.
type StaticPlanner struct {
    Steps   []models.Step
    Summary string
}

func (s *StaticPlanner) Build(ctx context.Context, query string, maxRetry int, emit models.Emitter) (*blueprint.StepCollection, error) {
    if len(s.Steps) == 0 { return nil, &models.PlanParseError{Reason: "static plan is empty"} }
    c := blueprint.NewCollection(query)
    c.SetQuerySummary(s.Summary)
    for _, st := range s.Steps {
        st.Status = models.StatusPlanned
        c.AddStep(st)
    }
    emit.Send(models.EventMessage, 0, fmt.Sprintf("static plan with %d steps", c.Len()))
    return c, nil
}

func (s *StaticPlanner) Modify(ctx context.Context, current *blueprint.StepCollection, request string, maxRetry int, emit models.Emitter) (*blueprint.StepCollection, error) {
    return nil, fmt.Errorf("static plan cannot be modified")
}
