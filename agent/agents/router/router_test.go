package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	promptx "github.com/tanpawarit/dep-brain/agent/prompt"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	requests  []contractx.GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req contractx.GenerateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no fake response left")
	}
	out := f.responses[0]
	f.responses = f.responses[1:]
	return out, nil
}

func newTestRouter(t *testing.T, gen *fakeGenerator) *Router {
	t.Helper()
	r, err := New(gen, promptx.LoadPromptSet())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		response   string
		err        error
		wantFlow   contractx.Flow
		wantAnswer string
		wantFall   bool
	}{
		{name: "fast with content", response: `{"flow":"fast","content":"4"}`, wantFlow: contractx.FlowFast, wantAnswer: "4"},
		{name: "logical", response: `{"flow":"logical","content":null}`, wantFlow: contractx.FlowLogical},
		{name: "fenced json", response: "```json\n{\"flow\": \"creative\", \"content\": null}\n```", wantFlow: contractx.FlowCreative},
		{name: "single-line fence with tag", response: "```json {\"flow\":\"fast\",\"content\":\"4\"}```", wantFlow: contractx.FlowFast, wantAnswer: "4"},
		{name: "upper case flow", response: `{"flow":"PARALLEL"}`, wantFlow: contractx.FlowParallel},
		{name: "content dropped outside fast", response: `{"flow":"logical","content":"ignored"}`, wantFlow: contractx.FlowLogical},
		{name: "fast without content", response: `{"flow":"fast","content":null}`, wantFlow: contractx.FlowFast},
		{name: "invalid flow", response: `{"flow":"telepathic","content":"x"}`, wantFlow: contractx.FlowSequential},
		{name: "malformed", response: "not json", wantFlow: contractx.FlowSequential, wantFall: true},
		{name: "missing flow", response: `{"content":"hi"}`, wantFlow: contractx.FlowSequential, wantFall: true},
		{name: "backend error", err: errors.New("boom"), wantFlow: contractx.FlowSequential, wantFall: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			gen := &fakeGenerator{responses: []string{tc.response}, err: tc.err}
			got := newTestRouter(t, gen).Classify(context.Background(), "query")

			if got.Flow != tc.wantFlow {
				t.Fatalf("Flow = %q, want %q", got.Flow, tc.wantFlow)
			}
			if got.Answer != tc.wantAnswer || got.HasAnswer != (tc.wantAnswer != "") {
				t.Fatalf("Answer = %q (has=%v), want %q", got.Answer, got.HasAnswer, tc.wantAnswer)
			}
			if (got.Fallback != "") != tc.wantFall {
				t.Fatalf("Fallback = %q, want fallback=%v", got.Fallback, tc.wantFall)
			}
			if gen.calls != 1 {
				t.Fatalf("generator calls = %d, want 1", gen.calls)
			}
			req := gen.requests[0]
			if !req.Structured || req.Temperature != classifyTemperature {
				t.Fatalf("unexpected request: %+v", req)
			}
		})
	}
}

func TestQuickReplyUsesInlineAnswer(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	qs := statex.NewQueryState("q1", "2+2?", "fast", time.Now())

	out, err := newTestRouter(t, gen).QuickReply(context.Background(), qs, "4")
	if err != nil {
		t.Fatalf("QuickReply() error = %v", err)
	}
	if out.FinalOutput != "4" {
		t.Fatalf("FinalOutput = %q, want 4", out.FinalOutput)
	}
	if gen.calls != 0 {
		t.Fatalf("generator calls = %d, want 0", gen.calls)
	}
	if out.Stage != contractx.StageQuickResponse || out.LogCount() != 1 {
		t.Fatalf("unexpected stage/logs: %q %d", out.Stage, out.LogCount())
	}
}

func TestQuickReplyGenerates(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{responses: []string{"Hello there"}}
	qs := statex.NewQueryState("q1", "hi", "fast", time.Now())

	out, err := newTestRouter(t, gen).QuickReply(context.Background(), qs, "  ")
	if err != nil {
		t.Fatalf("QuickReply() error = %v", err)
	}
	if out.FinalOutput != "Hello there" || gen.calls != 1 {
		t.Fatalf("FinalOutput = %q calls = %d", out.FinalOutput, gen.calls)
	}
	if gen.requests[0].User != "hi" {
		t.Fatalf("quick reply must use the original query, got %q", gen.requests[0].User)
	}
}

func TestQuickReplyFallback(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{err: errors.New("down")}
	qs := statex.NewQueryState("q1", "hi", "fast", time.Now())

	out, err := newTestRouter(t, gen).QuickReply(context.Background(), qs, "")
	if err != nil {
		t.Fatalf("QuickReply() error = %v", err)
	}
	if out.FinalOutput != contractx.FallbackQuickOutput {
		t.Fatalf("FinalOutput = %q", out.FinalOutput)
	}
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		`{"a":1}`:                    `{"a":1}`,
		"```json\n{\"a\":1}\n```":    `{"a":1}`,
		"```\n{\"a\":1}```":          `{"a":1}`,
		"  ```JSON\n{\"a\":1}\n``` ": `{"a":1}`,
		"```json {\"a\":1}```":       `{"a":1}`,
		"```{\"a\":1}```":            `{"a":1}`,
	}
	for in, want := range cases {
		if got := stripCodeFence(in); got != want {
			t.Fatalf("stripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
	if got := stripCodeFence("```"); strings.Contains(got, "`") {
		t.Fatalf("bare fence not stripped: %q", got)
	}
}

func TestNewRequiresPrompts(t *testing.T) {
	t.Parallel()

	if _, err := New(&fakeGenerator{}, promptx.PromptSet{}); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("New() error = %v, want ErrPromptMissing", err)
	}
}
