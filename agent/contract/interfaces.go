package contract

import (
	"context"

	statex "github.com/tanpawarit/dep-brain/agent/state"
)

// Stage is a unit of work over the query state. Implementations append at
// least one log entry and set Stage before returning. Collaborator failures are
// absorbed into the state; a returned error means the stage could not run at all.
type Stage interface {
	Name() string
	Process(ctx context.Context, qs *statex.QueryState) (*statex.QueryState, error)
}

type Planner interface {
	Stage
	Synthesize(ctx context.Context, qs *statex.QueryState) (*statex.QueryState, error)
}

type Router interface {
	Classify(ctx context.Context, query string) RouteDecision
	QuickReply(ctx context.Context, qs *statex.QueryState, inline string) (*statex.QueryState, error)
}

type Registry interface {
	Router() Router
	Planner() Planner
	Memory() Stage
	Analyzer() Stage
	Creative() Stage
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Searcher never fails: unavailable backends and errors yield no results.
type Searcher interface {
	Available() bool
	Search(ctx context.Context, query string, maxResults int) []statex.SearchResult
}

type LongTermMemory interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
	Index(ctx context.Context, documents []string) error
}
