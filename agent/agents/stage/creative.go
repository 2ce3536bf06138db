package stage

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	promptx "github.com/tanpawarit/dep-brain/agent/prompt"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

const creativeTemperature float32 = 0.9

var _ contractx.Stage = (*Creative)(nil)

// Creative rewrites the facts, or the plan and memories when there are no
// facts, into an engaging answer.
type Creative struct {
	gen     contractx.Generator
	prompts promptx.PromptSet
}

func NewCreative(gen contractx.Generator, prompts promptx.PromptSet) *Creative {
	return &Creative{gen: gen, prompts: prompts}
}

func (c *Creative) Name() string { return contractx.SourceCreative }

func (c *Creative) Process(ctx context.Context, qs *statex.QueryState) (*statex.QueryState, error) {
	if qs == nil {
		return nil, fmt.Errorf("%w: query state is nil", contractx.ErrValidation)
	}
	qs.Record(contractx.SourceCreative, "Synthesizing creative output...")
	qs.Stage = contractx.StageCreating

	var user string
	if qs.HasFacts() {
		user = fmt.Sprintf("Query: %s\n\nDry Facts:\n%s", qs.OriginalQuery(), strings.Join(qs.LogicalFacts, "\n"))
	} else {
		user = fmt.Sprintf("Query: %s\n\nPlan:\n%s\n\nContext:\n%s", qs.OriginalQuery(), bulletList(qs.Plan), bulletList(qs.Memories))
	}

	out, err := c.gen.Generate(ctx, contractx.GenerateRequest{
		System:      c.prompts.Creative,
		User:        user,
		Temperature: creativeTemperature,
	})
	if err != nil {
		qs.CreativeDraft = ""
		qs.FinalOutput = contractx.FallbackCreativeOutput
		if stop := degrade(ctx, qs, contractx.SourceCreative, "Creative generation", err); stop != nil {
			return qs, stop
		}
		return qs, nil
	}

	qs.FinalOutput = out
	qs.CreativeDraft = out
	qs.Record(contractx.SourceCreative, "Creative Output:\n"+out)
	return qs, nil
}
