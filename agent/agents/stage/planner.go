package stage

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	promptx "github.com/tanpawarit/dep-brain/agent/prompt"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

var _ contractx.Planner = (*Planner)(nil)

// Planner has two modes: planning, which decomposes the query into steps, and
// synthesis, which merges the logical and creative outputs.
type Planner struct {
	gen     contractx.Generator
	prompts promptx.PromptSet
}

func NewPlanner(gen contractx.Generator, prompts promptx.PromptSet) *Planner {
	return &Planner{gen: gen, prompts: prompts}
}

func (p *Planner) Name() string { return contractx.SourcePlanner }

// Process synthesizes when both facts and a draft are present and plans
// otherwise.
func (p *Planner) Process(ctx context.Context, qs *statex.QueryState) (*statex.QueryState, error) {
	if qs == nil {
		return nil, fmt.Errorf("%w: query state is nil", contractx.ErrValidation)
	}
	if qs.HasFacts() && qs.HasDraft() {
		return p.Synthesize(ctx, qs)
	}
	return p.plan(ctx, qs)
}

func (p *Planner) plan(ctx context.Context, qs *statex.QueryState) (*statex.QueryState, error) {
	qs.Record(contractx.SourcePlanner, "Analyzing query and creating plan...")

	raw, err := p.gen.Generate(ctx, contractx.GenerateRequest{
		System:      p.prompts.Planner,
		User:        qs.OriginalQuery(),
		Temperature: contractx.DefaultTemperature,
	})
	if err != nil {
		if stop := degrade(ctx, qs, contractx.SourcePlanner, "Planning", err); stop != nil {
			return qs, stop
		}
		raw = ""
	}

	qs.Plan = parsePlan(raw)
	if len(qs.Plan) == 0 {
		if strings.TrimSpace(raw) != "" {
			qs.Plan = []string{strings.TrimSpace(raw)}
		} else {
			qs.Plan = []string{qs.OriginalQuery()}
		}
	}

	qs.Stage = contractx.StagePlanned
	qs.Record(contractx.SourcePlanner, "Plan Generated:\n"+bulletList(qs.Plan))
	return qs, nil
}

// Synthesize writes FinalOutput from LogicalFacts and CreativeDraft. Either
// input may be empty.
func (p *Planner) Synthesize(ctx context.Context, qs *statex.QueryState) (*statex.QueryState, error) {
	if qs == nil {
		return nil, fmt.Errorf("%w: query state is nil", contractx.ErrValidation)
	}
	qs.Record(contractx.SourcePlanner, "Synthesizing logical analysis and creative draft...")
	qs.Stage = contractx.StageSynthesis

	if !qs.HasFacts() && !qs.HasDraft() {
		qs.FinalOutput = contractx.FallbackSynthesisOutput
		qs.Record(contractx.SourcePlanner, "Nothing to synthesize.")
		return qs, nil
	}

	facts := "(none)"
	if qs.HasFacts() {
		facts = strings.Join(qs.LogicalFacts, "\n")
	}
	draft := "(none)"
	if qs.HasDraft() {
		draft = qs.CreativeDraft
	}
	user := fmt.Sprintf("Query: %s\n\nLogical Data:\n%s\n\nCreative Draft:\n%s", qs.OriginalQuery(), facts, draft)

	out, err := p.gen.Generate(ctx, contractx.GenerateRequest{
		System:      p.prompts.Synthesis,
		User:        user,
		Temperature: contractx.DefaultTemperature,
	})
	if err != nil {
		if stop := degrade(ctx, qs, contractx.SourcePlanner, "Synthesis", err); stop != nil {
			return qs, stop
		}
		if qs.HasDraft() {
			qs.FinalOutput = qs.CreativeDraft
		} else {
			qs.FinalOutput = strings.Join(qs.LogicalFacts, "\n")
		}
		return qs, nil
	}

	qs.FinalOutput = out
	qs.Record(contractx.SourcePlanner, "Synthesis complete.")
	return qs, nil
}

// parsePlan keeps lines that start with a "-" or "*" bullet, without the
// marker.
func parsePlan(raw string) []string {
	var steps []string
	for _, line := range strings.Split(raw, "\n") {
		s := strings.TrimSpace(line)
		if !strings.HasPrefix(s, "-") && !strings.HasPrefix(s, "*") {
			continue
		}
		s = strings.TrimSpace(s[1:])
		if s == "" {
			continue
		}
		steps = append(steps, s)
	}
	return steps
}
