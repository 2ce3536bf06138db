package stage

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	promptx "github.com/tanpawarit/dep-brain/agent/prompt"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

const (
	analyzerTemperature float32 = 0.0
	searchMaxResults            = 5
)

var _ contractx.Stage = (*Analyzer)(nil)

// Analyzer produces LogicalFacts, optionally grounded in a web search of the
// original query.
type Analyzer struct {
	gen      contractx.Generator
	searcher contractx.Searcher
	prompts  promptx.PromptSet
}

func NewAnalyzer(gen contractx.Generator, searcher contractx.Searcher, prompts promptx.PromptSet) *Analyzer {
	return &Analyzer{gen: gen, searcher: searcher, prompts: prompts}
}

func (a *Analyzer) Name() string { return contractx.SourceAnalyzer }

func (a *Analyzer) Process(ctx context.Context, qs *statex.QueryState) (*statex.QueryState, error) {
	if qs == nil {
		return nil, fmt.Errorf("%w: query state is nil", contractx.ErrValidation)
	}
	qs.Record(contractx.SourceAnalyzer, "Processing logic and structure...")

	if a.searcher != nil && a.searcher.Available() {
		qs.SearchResults = a.searcher.Search(ctx, qs.OriginalQuery(), searchMaxResults)
		qs.Record(contractx.SourceAnalyzer, fmt.Sprintf("Web search returned %d results.", len(qs.SearchResults)))
	}

	user := fmt.Sprintf(
		"Query: %s\n\nPlan:\n%s\n\nMemory Context:\n%s\n\nWeb Search Results:\n%s",
		qs.OriginalQuery(),
		bulletList(qs.Plan),
		bulletList(qs.Memories),
		formatSearchResults(qs.SearchResults),
	)

	out, err := a.gen.Generate(ctx, contractx.GenerateRequest{
		System:      a.prompts.Analyzer,
		User:        user,
		Temperature: analyzerTemperature,
	})
	if err != nil {
		qs.LogicalFacts = nil
		if stop := degrade(ctx, qs, contractx.SourceAnalyzer, "Analysis", err); stop != nil {
			return qs, stop
		}
	} else {
		qs.LogicalFacts = splitLines(out)
	}

	if len(qs.SearchResults) > 0 {
		qs.Stage = contractx.StageGrounded
	} else {
		qs.Stage = contractx.StageAnalyzed
	}
	qs.Record(contractx.SourceAnalyzer, "Logical Structure:\n"+bulletList(qs.LogicalFacts))
	return qs, nil
}
