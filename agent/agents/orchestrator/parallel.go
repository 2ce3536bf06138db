package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

type branchResult struct {
	state    *statex.QueryState
	err      error
	timedOut bool
}

func (r branchResult) ok() bool {
	return r.err == nil && !r.timedOut && r.state != nil
}

// forkMerge runs the Analyzer and the Creative stage concurrently on deep
// copies of qs and folds their outputs back into qs. Each copy's full log,
// pre-fork entries included, is appended left then right, whichever
// finishes first.
func (o *Orchestrator) forkMerge(ctx context.Context, qs *statex.QueryState) (*statex.QueryState, error) {
	left, right := qs.Clone(), qs.Clone()

	var leftRes, rightRes branchResult

	g := new(errgroup.Group)
	g.SetLimit(o.workers)
	g.Go(func() error {
		leftRes = o.runBranch(ctx, o.models.Analyzer(), left)
		return nil
	})
	g.Go(func() error {
		rightRes = o.runBranch(ctx, o.models.Creative(), right)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return qs, err
	}

	if leftRes.ok() {
		qs.LogicalFacts = leftRes.state.LogicalFacts
		qs.SearchResults = leftRes.state.SearchResults
	} else {
		qs.LogicalFacts = nil
		qs.SearchResults = nil
	}
	if rightRes.ok() {
		qs.CreativeDraft = rightRes.state.CreativeDraft
	} else {
		qs.CreativeDraft = ""
	}

	// A timed-out branch may still be writing to its copy.
	if !leftRes.timedOut && leftRes.state != nil {
		qs.AppendLogs(leftRes.state.Logs()...)
	}
	if !rightRes.timedOut && rightRes.state != nil {
		qs.AppendLogs(rightRes.state.Logs()...)
	}

	recordBranchFailure(qs, contractx.SourceAnalyzer, leftRes)
	recordBranchFailure(qs, contractx.SourceCreative, rightRes)
	return qs, nil
}

func (o *Orchestrator) runBranch(ctx context.Context, stage contractx.Stage, cp *statex.QueryState) branchResult {
	bctx := ctx
	if o.branchTimeout > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(ctx, o.branchTimeout)
		defer cancel()
	}

	done := make(chan branchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- branchResult{state: cp, err: fmt.Errorf("panic: %v", r)}
			}
		}()
		out, err := traced(stage.Name(), stage.Process)(bctx, cp)
		if out == nil {
			out = cp
		}
		done <- branchResult{state: out, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && ctx.Err() == nil && bctx.Err() != nil {
			return branchResult{timedOut: true}
		}
		return res
	case <-bctx.Done():
		if err := ctx.Err(); err != nil {
			return branchResult{err: err}
		}
		return branchResult{timedOut: true}
	}
}

func recordBranchFailure(qs *statex.QueryState, branch string, res branchResult) {
	switch {
	case res.timedOut:
		log.Warn().Str("query_id", qs.ID).Str("branch", branch).Msg("parallel branch timed out")
		qs.Record(contractx.SourceParallel, fmt.Sprintf("%s branch timed out; continuing with empty output.", branch))
	case res.err != nil:
		log.Warn().Err(res.err).Str("query_id", qs.ID).Str("branch", branch).Msg("parallel branch failed")
		qs.Record(contractx.SourceParallel, fmt.Sprintf("%s branch failed: %v; continuing with empty output.", branch, res.err))
	}
}
