package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	nodex "github.com/tanpawarit/dep-brain/agent/nodes"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

var ErrEmptyQuery = nodex.ErrEmptyQuery

const minWorkers = 2

type Config struct {
	Workers       int           `envconfig:"WORKERS" split_words:"true" default:"2"`
	BranchTimeout time.Duration `envconfig:"BRANCH_TIMEOUT" split_words:"true"`
	IndexTimeout  time.Duration `envconfig:"INDEX_TIMEOUT" split_words:"true" default:"30s"`
}

type flowRunner = compose.Runnable[nodex.GraphInput, *statex.QueryState]

// Orchestrator maps each flow to a fixed sequence of stages and runs it.
type Orchestrator struct {
	models contractx.Registry
	memory contractx.LongTermMemory

	flows map[contractx.Flow]flowRunner

	workers       int
	branchTimeout time.Duration
	indexTimeout  time.Duration

	// tasks tracks background indexing started by any flow.
	tasks sync.WaitGroup

	now   func() time.Time
	newID func() string
}

func New(models contractx.Registry, memory contractx.LongTermMemory, cfg Config) (*Orchestrator, error) {
	if models == nil {
		return nil, errors.New("model registry is required")
	}
	if models.Router() == nil || models.Planner() == nil || models.Memory() == nil ||
		models.Analyzer() == nil || models.Creative() == nil {
		return nil, errors.New("model registry is incomplete")
	}

	workers := cfg.Workers
	if workers < minWorkers {
		workers = minWorkers
	}

	o := &Orchestrator{
		models:        models,
		memory:        memory,
		workers:       workers,
		branchTimeout: cfg.BranchTimeout,
		indexTimeout:  cfg.IndexTimeout,
		now:           time.Now,
		newID:         uuid.NewString,
	}

	flows, err := o.compileFlows(context.Background())
	if err != nil {
		return nil, err
	}
	o.flows = flows
	return o, nil
}

// Dispatch lets the router choose the flow and runs it.
func (o *Orchestrator) Dispatch(ctx context.Context, query string) (*statex.QueryState, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	decision := o.models.Router().Classify(ctx, query)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !decision.Flow.Valid() {
		decision.Flow = contractx.FlowSequential
	}
	return o.run(ctx, decision.Flow, query, &decision)
}

// Run executes flow directly, bypassing the router.
func (o *Orchestrator) Run(ctx context.Context, flow contractx.Flow, query string) (*statex.QueryState, error) {
	return o.run(ctx, flow, query, nil)
}

func (o *Orchestrator) RunFast(ctx context.Context, query string) (*statex.QueryState, error) {
	return o.Run(ctx, contractx.FlowFast, query)
}

func (o *Orchestrator) RunSequential(ctx context.Context, query string) (*statex.QueryState, error) {
	return o.Run(ctx, contractx.FlowSequential, query)
}

func (o *Orchestrator) RunLogical(ctx context.Context, query string) (*statex.QueryState, error) {
	return o.Run(ctx, contractx.FlowLogical, query)
}

func (o *Orchestrator) RunCreative(ctx context.Context, query string) (*statex.QueryState, error) {
	return o.Run(ctx, contractx.FlowCreative, query)
}

func (o *Orchestrator) RunParallel(ctx context.Context, query string) (*statex.QueryState, error) {
	return o.Run(ctx, contractx.FlowParallel, query)
}

// Wait blocks until background indexing has finished.
func (o *Orchestrator) Wait() {
	o.tasks.Wait()
}

func (o *Orchestrator) run(
	ctx context.Context,
	flow contractx.Flow,
	query string,
	decision *contractx.RouteDecision,
) (out *statex.QueryState, err error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	runner, ok := o.flows[flow]
	if !ok {
		return nil, fmt.Errorf("%w: unknown flow %q", contractx.ErrValidation, flow)
	}

	ctx, span := startFlowSpan(ctx, flow)
	defer func() { endSpan(span, err) }()

	out, err = runner.Invoke(ctx, nodex.GraphInput{
		Query:    query,
		Flow:     flow,
		Decision: decision,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("run %s flow: %w", flow, err)
	}
	return out, nil
}
