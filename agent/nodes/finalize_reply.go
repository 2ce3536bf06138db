package orchestratornode

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

// FinalizeLogical answers with the logical facts, one per line.
func FinalizeLogical(in *GraphState) (*GraphState, error) {
	if in == nil || in.State == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.State.HasFacts() {
		in.State.FinalOutput = strings.Join(in.State.LogicalFacts, "\n")
	} else {
		in.State.FinalOutput = contractx.FallbackLogicalOutput
	}
	return in, nil
}

// FinalizeReply records indexing outcomes and guarantees a non-empty answer.
func FinalizeReply(in *GraphState) (*statex.QueryState, error) {
	if in == nil || in.State == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	recordIndexing(in)

	qs := in.State
	if !qs.HasFinalOutput() {
		qs.FinalOutput = fallbackOutput(contractx.Flow(qs.Flow))
		log.Warn().Str("query_id", qs.ID).Str("flow", qs.Flow).Msg("flow finished without output, using fallback")
		qs.Record(contractx.SourceOrchestrator, "Flow produced no output; using fallback text.")
	}
	return qs, nil
}

func fallbackOutput(flow contractx.Flow) string {
	switch flow {
	case contractx.FlowFast:
		return contractx.FallbackQuickOutput
	case contractx.FlowLogical:
		return contractx.FallbackLogicalOutput
	case contractx.FlowParallel:
		return contractx.FallbackSynthesisOutput
	default:
		return contractx.FallbackCreativeOutput
	}
}
