package orchestratornode

import (
	"context"

	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

// QuickReplyStage answers with the router. The inline answer carried by the
// routing decision, if any, is used without another generation call.
func QuickReplyStage(in *GraphState, router contractx.Router) StageFunc {
	inline := ""
	if in != nil && in.Decision != nil && in.Decision.HasAnswer {
		inline = in.Decision.Answer
	}
	return func(ctx context.Context, qs *statex.QueryState) (*statex.QueryState, error) {
		return router.QuickReply(ctx, qs, inline)
	}
}
