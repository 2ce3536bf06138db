package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

type StageFunc func(ctx context.Context, qs *statex.QueryState) (*statex.QueryState, error)

// RunStage invokes fn on the graph state. A stage error or panic is recorded
// on the state and the flow continues with whatever the stage left behind;
// only context cancellation is returned.
func RunStage(ctx context.Context, in *GraphState, name string, fn StageFunc) (*GraphState, error) {
	if in == nil || in.State == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := invoke(ctx, in, fn)
	if err == nil {
		return in, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	log.Warn().Err(err).Str("query_id", in.State.ID).Str("stage", name).Msg("stage failed, continuing flow")
	in.State.Record(contractx.SourceOrchestrator, fmt.Sprintf("%s stage failed: %v", name, err))
	return in, nil
}

func invoke(ctx context.Context, in *GraphState, fn StageFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	next, err := fn(ctx, in.State)
	if next != nil {
		in.State = next
	}
	return err
}
