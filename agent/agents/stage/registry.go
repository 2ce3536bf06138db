package stage

import (
	"context"
	"fmt"

	routerx "github.com/tanpawarit/dep-brain/agent/agents/router"
	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	llmx "github.com/tanpawarit/dep-brain/agent/llm"
	promptx "github.com/tanpawarit/dep-brain/agent/prompt"
)

type Options struct {
	TopK   int
	Recall bool
}

// Generators holds one generation collaborator per region.
type Generators struct {
	Router   contractx.Generator
	Planner  contractx.Generator
	Memory   contractx.Generator
	Analyzer contractx.Generator
	Creative contractx.Generator
}

type registryImpl struct {
	router   contractx.Router
	planner  contractx.Planner
	memory   contractx.Stage
	analyzer contractx.Stage
	creative contractx.Stage
}

func (r *registryImpl) Router() contractx.Router   { return r.router }
func (r *registryImpl) Planner() contractx.Planner { return r.planner }
func (r *registryImpl) Memory() contractx.Stage    { return r.memory }
func (r *registryImpl) Analyzer() contractx.Stage  { return r.analyzer }
func (r *registryImpl) Creative() contractx.Stage  { return r.creative }

// NewRegistry creates a model per region from cfg and wires the stages.
func NewRegistry(
	ctx context.Context,
	cfg llmx.Config,
	searcher contractx.Searcher,
	memory contractx.LongTermMemory,
	opts Options,
) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var gens Generators
	for _, item := range []struct {
		region contractx.Region
		dst    *contractx.Generator
	}{
		{contractx.RegionRouter, &gens.Router},
		{contractx.RegionPlanner, &gens.Planner},
		{contractx.RegionMemory, &gens.Memory},
		{contractx.RegionAnalyzer, &gens.Analyzer},
		{contractx.RegionCreative, &gens.Creative},
	} {
		gen, err := llmx.NewGeneratorFor(ctx, cfg, item.region)
		if err != nil {
			return nil, err
		}
		*item.dst = gen
	}

	return NewRegistryWithGenerators(gens, searcher, memory, opts)
}

func NewRegistryWithGenerators(
	gens Generators,
	searcher contractx.Searcher,
	memory contractx.LongTermMemory,
	opts Options,
) (contractx.Registry, error) {
	if gens.Router == nil || gens.Planner == nil || gens.Memory == nil || gens.Analyzer == nil || gens.Creative == nil {
		return nil, fmt.Errorf("%w: every region needs a generator", contractx.ErrValidation)
	}

	prompts := promptx.LoadPromptSet()
	if name, ok := prompts.Validate(); !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
	}

	router, err := routerx.New(gens.Router, prompts)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		router:   router,
		planner:  NewPlanner(gens.Planner, prompts),
		memory:   NewMemory(gens.Memory, memory, prompts, opts.TopK, opts.Recall),
		analyzer: NewAnalyzer(gens.Analyzer, searcher, prompts),
		creative: NewCreative(gens.Creative, prompts),
	}, nil
}
