package stage

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	promptx "github.com/tanpawarit/dep-brain/agent/prompt"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

const defaultTopK = 5

var _ contractx.Stage = (*Memory)(nil)

// Memory fills Memories from the long-term store. When the store has nothing
// and recall is enabled, the model is asked for background concepts instead.
type Memory struct {
	gen     contractx.Generator
	store   contractx.LongTermMemory
	prompts promptx.PromptSet
	topK    int
	recall  bool
}

func NewMemory(gen contractx.Generator, store contractx.LongTermMemory, prompts promptx.PromptSet, topK int, recall bool) *Memory {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Memory{gen: gen, store: store, prompts: prompts, topK: topK, recall: recall}
}

func (m *Memory) Name() string { return contractx.SourceMemory }

func (m *Memory) Process(ctx context.Context, qs *statex.QueryState) (*statex.QueryState, error) {
	if qs == nil {
		return nil, fmt.Errorf("%w: query state is nil", contractx.ErrValidation)
	}
	qs.Record(contractx.SourceMemory, "Retrieving relevant context/memories...")
	qs.Stage = contractx.StageContextualized

	query := qs.OriginalQuery()
	if qs.HasPlan() {
		query = strings.Join(qs.Plan, "\n")
	}

	var docs []string
	if m.store != nil {
		var err error
		docs, err = m.store.Retrieve(ctx, query, m.topK)
		if err != nil {
			qs.Memories = nil
			if stop := degrade(ctx, qs, contractx.SourceMemory, "Memory retrieval", err); stop != nil {
				return qs, stop
			}
			return qs, nil
		}
	}

	if len(docs) == 0 && m.recall && m.gen != nil {
		recalled, err := m.gen.Generate(ctx, contractx.GenerateRequest{
			System:      m.prompts.Memory,
			User:        "Plan: " + query,
			Temperature: contractx.DefaultTemperature,
		})
		if err != nil {
			if stop := degrade(ctx, qs, contractx.SourceMemory, "Memory recall", err); stop != nil {
				return qs, stop
			}
		} else {
			docs = splitLines(recalled)
		}
	}

	qs.Memories = docs
	qs.Record(contractx.SourceMemory, "Context Retrieved:\n"+bulletList(docs))
	return qs, nil
}
