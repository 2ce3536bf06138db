package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	nodex "github.com/tanpawarit/dep-brain/agent/nodes"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

type flowStep struct {
	name string
	run  func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error)
}

func (o *Orchestrator) compileFlows(ctx context.Context) (map[contractx.Flow]flowRunner, error) {
	flows := make(map[contractx.Flow]flowRunner, len(contractx.Flows))
	for _, flow := range contractx.Flows {
		runner, err := o.compileFlowGraph(ctx, flow, o.flowSteps(flow))
		if err != nil {
			return nil, err
		}
		flows[flow] = runner
	}
	return flows, nil
}

// flowSteps lists the nodes between request validation and finalization.
func (o *Orchestrator) flowSteps(flow contractx.Flow) []flowStep {
	stage := func(node string, s contractx.Stage) flowStep {
		return flowStep{name: node, run: func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RunStage(ctx, in, s.Name(), traced(s.Name(), s.Process))
		}}
	}

	plan := stage("plan", o.models.Planner())
	recall := stage("recall_memory", o.models.Memory())
	analyze := stage("analyze", o.models.Analyzer())
	create := stage("create", o.models.Creative())
	index := flowStep{name: "index_search_results", run: func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
		return nodex.IndexSearchResults(ctx, in, o.memory, &o.tasks, o.indexTimeout)
	}}

	switch flow {
	case contractx.FlowFast:
		return []flowStep{{name: "quick_reply", run: func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RunStage(ctx, in, contractx.SourceRouter, traced("router", nodex.QuickReplyStage(in, o.models.Router())))
		}}}
	case contractx.FlowSequential:
		return []flowStep{plan, recall, analyze, index, create}
	case contractx.FlowLogical:
		return []flowStep{plan, recall, analyze, index, {name: "finalize_logical", run: func(_ context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.FinalizeLogical(in)
		}}}
	case contractx.FlowCreative:
		return []flowStep{plan, recall, create}
	case contractx.FlowParallel:
		synthesize := flowStep{name: "synthesize", run: func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RunStage(ctx, in, contractx.SourcePlanner, traced("synthesis", o.models.Planner().Synthesize))
		}}
		forkMerge := flowStep{name: "fork_merge", run: func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			if in == nil || in.State == nil {
				return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
			}
			merged, err := o.forkMerge(ctx, in.State)
			if err != nil {
				return nil, err
			}
			in.State = merged
			return in, nil
		}}
		return []flowStep{plan, recall, forkMerge, index, synthesize}
	}
	return nil
}

func (o *Orchestrator) compileFlowGraph(
	ctx context.Context,
	flow contractx.Flow,
	steps []flowStep,
) (flowRunner, error) {
	graph := compose.NewGraph[nodex.GraphInput, *statex.QueryState]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now, o.newID)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	for _, step := range steps {
		if err := graph.AddLambdaNode(step.name, compose.InvokableLambda(step.run)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", step.name, err)
		}
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*statex.QueryState, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	chain := make([]string, 0, len(steps)+4)
	chain = append(chain, compose.START, "validate_request")
	for _, step := range steps {
		chain = append(chain, step.name)
	}
	chain = append(chain, "finalize_reply", compose.END)

	for i := 0; i+1 < len(chain); i++ {
		if err := graph.AddEdge(chain[i], chain[i+1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", chain[i], chain[i+1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("brain.flow."+flow.String()))
	if err != nil {
		return nil, fmt.Errorf("compile %s flow graph: %w", flow, err)
	}
	return runner, nil
}
