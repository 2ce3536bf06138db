package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	openrouterx "github.com/tanpawarit/dep-brain/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel   string `envconfig:"ROUTER_MODEL" split_words:"true"`
	PlannerModel  string `envconfig:"PLANNER_MODEL" split_words:"true"`
	MemoryModel   string `envconfig:"MEMORY_MODEL" split_words:"true"`
	AnalyzerModel string `envconfig:"ANALYZER_MODEL" split_words:"true"`
	CreativeModel string `envconfig:"CREATIVE_MODEL" split_words:"true"`

	RouterReasoning   string `envconfig:"ROUTER_REASONING" split_words:"true"`
	PlannerReasoning  string `envconfig:"PLANNER_REASONING" split_words:"true"`
	MemoryReasoning   string `envconfig:"MEMORY_REASONING" split_words:"true"`
	AnalyzerReasoning string `envconfig:"ANALYZER_REASONING" split_words:"true" default:"high"`
	CreativeReasoning string `envconfig:"CREATIVE_REASONING" split_words:"true" default:"minimal"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(region contractx.Region) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	reasoning := ""

	override := func(m, r string) {
		if v := strings.TrimSpace(m); v != "" {
			modelName = v
		}
		reasoning = strings.TrimSpace(r)
	}

	switch region {
	case contractx.RegionRouter:
		override(c.RouterModel, c.RouterReasoning)
	case contractx.RegionPlanner:
		override(c.PlannerModel, c.PlannerReasoning)
	case contractx.RegionMemory:
		override(c.MemoryModel, c.MemoryReasoning)
	case contractx.RegionAnalyzer:
		override(c.AnalyzerModel, c.AnalyzerReasoning)
	case contractx.RegionCreative:
		override(c.CreativeModel, c.CreativeReasoning)
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
		ReasoningEffort:    reasoning,
	}
}
