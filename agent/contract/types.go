package contract

import (
	"strings"
)

// Flow is a statically fixed sequence of stage invocations.
type Flow string

const (
	FlowFast       Flow = "fast"
	FlowSequential Flow = "sequential"
	FlowLogical    Flow = "logical"
	FlowCreative   Flow = "creative"
	FlowParallel   Flow = "parallel"
)

// Flows lists every executable flow in routing-prompt order.
var Flows = []Flow{FlowLogical, FlowCreative, FlowSequential, FlowParallel, FlowFast}

func (f Flow) Valid() bool {
	switch f {
	case FlowFast, FlowSequential, FlowLogical, FlowCreative, FlowParallel:
		return true
	}
	return false
}

func (f Flow) String() string {
	return string(f)
}

// ParseFlow normalizes a label. Unknown labels return ok=false.
func ParseFlow(raw string) (Flow, bool) {
	f := Flow(strings.ToLower(strings.TrimSpace(raw)))
	return f, f.Valid()
}

// Region identifies which model configuration a component uses.
type Region string

const (
	RegionRouter   Region = "router"
	RegionPlanner  Region = "planner"
	RegionMemory   Region = "memory"
	RegionAnalyzer Region = "analyzer"
	RegionCreative Region = "creative"
)

// DefaultTemperature leaves the sampling temperature to the model.
const DefaultTemperature float32 = -1

type GenerateRequest struct {
	System      string  `json:"system"`
	User        string  `json:"user"`
	Temperature float32 `json:"temperature"`
	Structured  bool    `json:"structured"`
}

// RouteDecision is the Router output. Answer is only meaningful for FlowFast.
type RouteDecision struct {
	Flow      Flow   `json:"flow"`
	Answer    string `json:"content,omitempty"`
	HasAnswer bool   `json:"-"`
	// Fallback records why the decision was forced to sequential, if it was.
	Fallback string `json:"-"`
}

// Log sources used across stages.
const (
	SourceRouter       = "Router"
	SourcePlanner      = "Planner"
	SourceMemory       = "Memory"
	SourceAnalyzer     = "Analyzer"
	SourceCreative     = "Creative"
	SourceOrchestrator = "Orchestrator"
	SourceParallel     = "Parallel Executor"
)

// Stage labels.
const (
	StagePlanned        = "planned"
	StageSynthesis      = "synthesis complete"
	StageContextualized = "contextualized"
	StageAnalyzed       = "analyzed (logic)"
	StageGrounded       = "analyzed (grounded)"
	StageCreating       = "creating"
	StageQuickResponse  = "quick response"
)

// Literal fallbacks, used so that a flow never finishes without an answer.
const (
	FallbackLogicalOutput   = "No logical output generated."
	FallbackCreativeOutput  = "No creative output generated."
	FallbackQuickOutput     = "No quick response generated."
	FallbackSynthesisOutput = "No output generated."
)
