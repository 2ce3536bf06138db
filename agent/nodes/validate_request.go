package orchestratornode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

var ErrEmptyQuery = errors.New("query is empty")

type GraphInput struct {
	Query string
	Flow  contractx.Flow
	// Decision is set when the flow was chosen by the router.
	Decision *contractx.RouteDecision
}

type GraphState struct {
	State    *statex.QueryState
	Decision *contractx.RouteDecision

	pending []pendingIndex
}

func ValidateRequest(in GraphInput, nowFn func() time.Time, newID func() string) (*GraphState, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if !in.Flow.Valid() {
		return nil, fmt.Errorf("%w: unknown flow %q", contractx.ErrValidation, in.Flow)
	}

	qs := statex.NewQueryState(newID(), query, in.Flow.String(), nowFn())
	if d := in.Decision; d != nil {
		msg := fmt.Sprintf("Decision: routing to '%s' flow.", d.Flow)
		if d.Fallback != "" {
			msg += " Fallback: " + d.Fallback
		}
		qs.Record(contractx.SourceRouter, msg)
	}

	return &GraphState{State: qs, Decision: in.Decision}, nil
}
