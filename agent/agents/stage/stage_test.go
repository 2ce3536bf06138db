package stage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	promptx "github.com/tanpawarit/dep-brain/agent/prompt"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

type fakeGenerator struct {
	mu       sync.Mutex
	reply    func(req contractx.GenerateRequest) (string, error)
	calls    int
	requests []contractx.GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req contractx.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.reply(req)
}

func replyWith(s string) *fakeGenerator {
	return &fakeGenerator{reply: func(contractx.GenerateRequest) (string, error) { return s, nil }}
}

func failWith(err error) *fakeGenerator {
	return &fakeGenerator{reply: func(contractx.GenerateRequest) (string, error) { return "", err }}
}

type fakeSearcher struct {
	available bool
	results   []statex.SearchResult
	queries   []string
}

func (f *fakeSearcher) Available() bool { return f.available }

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) []statex.SearchResult {
	f.queries = append(f.queries, query)
	return f.results
}

type fakeMemory struct {
	docs    []string
	err     error
	queries []string
}

func (f *fakeMemory) Retrieve(_ context.Context, query string, _ int) ([]string, error) {
	f.queries = append(f.queries, query)
	return f.docs, f.err
}

func (f *fakeMemory) Index(context.Context, []string) error { return nil }

func newState(query string) *statex.QueryState {
	return statex.NewQueryState("q1", query, "sequential", time.Now())
}

func TestPlannerParsesBullets(t *testing.T) {
	t.Parallel()

	gen := replyWith("Here is the plan:\n- define terms\n  * compute result\n-\nplain line\n- check")
	qs, err := NewPlanner(gen, promptx.LoadPromptSet()).Process(context.Background(), newState("q"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	want := []string{"define terms", "compute result", "check"}
	if diff := cmp.Diff(want, qs.Plan); diff != "" {
		t.Fatalf("plan mismatch (-want +got):\n%s", diff)
	}
	if qs.Stage != contractx.StagePlanned {
		t.Fatalf("Stage = %q", qs.Stage)
	}
}

func TestPlannerFallsBackToRawResponse(t *testing.T) {
	t.Parallel()

	qs, err := NewPlanner(replyWith("just do it"), promptx.LoadPromptSet()).Process(context.Background(), newState("q"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if diff := cmp.Diff([]string{"just do it"}, qs.Plan); diff != "" {
		t.Fatalf("plan mismatch (-want +got):\n%s", diff)
	}

	qs, err = NewPlanner(failWith(errors.New("down")), promptx.LoadPromptSet()).Process(context.Background(), newState("original"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if diff := cmp.Diff([]string{"original"}, qs.Plan); diff != "" {
		t.Fatalf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlannerSynthesizesWhenFactsAndDraftPresent(t *testing.T) {
	t.Parallel()

	gen := replyWith("balanced answer")
	qs := newState("q")
	qs.LogicalFacts = []string{"fact"}
	qs.CreativeDraft = "draft"

	out, err := NewPlanner(gen, promptx.LoadPromptSet()).Process(context.Background(), qs)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out.FinalOutput != "balanced answer" || out.Stage != contractx.StageSynthesis {
		t.Fatalf("unexpected output: %q %q", out.FinalOutput, out.Stage)
	}
	if !strings.Contains(gen.requests[0].User, "fact") || !strings.Contains(gen.requests[0].User, "draft") {
		t.Fatalf("synthesis input missing data: %q", gen.requests[0].User)
	}
}

func TestPlannerSynthesizeDegrades(t *testing.T) {
	t.Parallel()

	p := NewPlanner(failWith(errors.New("down")), promptx.LoadPromptSet())

	qs := newState("q")
	qs.LogicalFacts = []string{"a", "b"}
	out, err := p.Synthesize(context.Background(), qs)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if out.FinalOutput != "a\nb" {
		t.Fatalf("FinalOutput = %q", out.FinalOutput)
	}

	qs = newState("q")
	qs.CreativeDraft = "draft"
	out, _ = p.Synthesize(context.Background(), qs)
	if out.FinalOutput != "draft" {
		t.Fatalf("FinalOutput = %q", out.FinalOutput)
	}

	gen := replyWith("unused")
	out, _ = NewPlanner(gen, promptx.LoadPromptSet()).Synthesize(context.Background(), newState("q"))
	if out.FinalOutput != contractx.FallbackSynthesisOutput || gen.calls != 0 {
		t.Fatalf("FinalOutput = %q calls = %d", out.FinalOutput, gen.calls)
	}
}

func TestMemoryUsesStoreThenRecall(t *testing.T) {
	t.Parallel()

	store := &fakeMemory{docs: []string{"doc one"}}
	gen := replyWith("unused")
	qs := newState("q")
	qs.Plan = []string{"step a", "step b"}

	out, err := NewMemory(gen, store, promptx.LoadPromptSet(), 3, true).Process(context.Background(), qs)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if diff := cmp.Diff([]string{"doc one"}, out.Memories); diff != "" {
		t.Fatalf("memories mismatch (-want +got):\n%s", diff)
	}
	if store.queries[0] != "step a\nstep b" || gen.calls != 0 {
		t.Fatalf("query = %q calls = %d", store.queries[0], gen.calls)
	}

	store = &fakeMemory{}
	gen = replyWith("concept 1\n\nconcept 2\n")
	out, _ = NewMemory(gen, store, promptx.LoadPromptSet(), 3, true).Process(context.Background(), newState("q"))
	if diff := cmp.Diff([]string{"concept 1", "concept 2"}, out.Memories); diff != "" {
		t.Fatalf("recalled memories mismatch (-want +got):\n%s", diff)
	}
	if out.Stage != contractx.StageContextualized {
		t.Fatalf("Stage = %q", out.Stage)
	}
}

func TestMemoryRetrievalFailureYieldsEmpty(t *testing.T) {
	t.Parallel()

	store := &fakeMemory{err: contractx.ErrMemoryUnavailable}
	gen := replyWith("should not be used")

	out, err := NewMemory(gen, store, promptx.LoadPromptSet(), 3, true).Process(context.Background(), newState("q"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out.Memories) != 0 || gen.calls != 0 {
		t.Fatalf("memories = %#v calls = %d", out.Memories, gen.calls)
	}
}

func TestAnalyzerGroundedAndLogic(t *testing.T) {
	t.Parallel()

	search := &fakeSearcher{available: true, results: []statex.SearchResult{{Title: "T", URL: "U", Content: "C"}}}
	gen := replyWith("fact 1\n\n fact 2 ")

	out, err := NewAnalyzer(gen, search, promptx.LoadPromptSet()).Process(context.Background(), newState("why?"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if diff := cmp.Diff([]string{"fact 1", "fact 2"}, out.LogicalFacts); diff != "" {
		t.Fatalf("facts mismatch (-want +got):\n%s", diff)
	}
	if out.Stage != contractx.StageGrounded || len(out.SearchResults) != 1 {
		t.Fatalf("Stage = %q results = %d", out.Stage, len(out.SearchResults))
	}
	if gen.requests[0].Temperature != 0 || !strings.Contains(gen.requests[0].User, "C") {
		t.Fatalf("unexpected request: %+v", gen.requests[0])
	}
	if search.queries[0] != "why?" {
		t.Fatalf("search query = %q", search.queries[0])
	}

	out, _ = NewAnalyzer(replyWith("f"), &fakeSearcher{}, promptx.LoadPromptSet()).Process(context.Background(), newState("q"))
	if out.Stage != contractx.StageAnalyzed {
		t.Fatalf("Stage = %q", out.Stage)
	}
}

func TestCreativeInputsAndFallback(t *testing.T) {
	t.Parallel()

	gen := replyWith("a poem")
	qs := newState("q")
	qs.LogicalFacts = []string{"dry"}
	out, err := NewCreative(gen, promptx.LoadPromptSet()).Process(context.Background(), qs)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out.FinalOutput != "a poem" || out.CreativeDraft != "a poem" {
		t.Fatalf("unexpected output: %q %q", out.FinalOutput, out.CreativeDraft)
	}
	if !strings.Contains(gen.requests[0].User, "Dry Facts") || gen.requests[0].Temperature != creativeTemperature {
		t.Fatalf("unexpected request: %+v", gen.requests[0])
	}

	out, _ = NewCreative(failWith(errors.New("down")), promptx.LoadPromptSet()).Process(context.Background(), newState("q"))
	if out.FinalOutput != contractx.FallbackCreativeOutput || out.HasDraft() {
		t.Fatalf("unexpected fallback: %q %q", out.FinalOutput, out.CreativeDraft)
	}
}

func TestStagesReturnContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAnalyzer(failWith(context.Canceled), nil, promptx.LoadPromptSet()).Process(ctx, newState("q"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Process() error = %v, want context.Canceled", err)
	}
}

func TestRegistryRequiresEveryGenerator(t *testing.T) {
	t.Parallel()

	g := replyWith("x")
	if _, err := NewRegistryWithGenerators(Generators{Router: g}, nil, nil, Options{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	reg, err := NewRegistryWithGenerators(Generators{Router: g, Planner: g, Memory: g, Analyzer: g, Creative: g}, nil, nil, Options{})
	if err != nil {
		t.Fatalf("NewRegistryWithGenerators() error = %v", err)
	}
	if reg.Router() == nil || reg.Planner() == nil || reg.Memory() == nil || reg.Analyzer() == nil || reg.Creative() == nil {
		t.Fatal("registry has nil components")
	}
}
