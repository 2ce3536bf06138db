package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/quick_reply.txt
	quickReplyRaw string

	//go:embed template/planner.txt
	plannerRaw string

	//go:embed template/synthesis.txt
	synthesisRaw string

	//go:embed template/memory.txt
	memoryRaw string

	//go:embed template/analyzer.txt
	analyzerRaw string

	//go:embed template/creative.txt
	creativeRaw string
)

// PromptSet holds the system instruction of every region.
type PromptSet struct {
	Router     string
	QuickReply string
	Planner    string
	Synthesis  string
	Memory     string
	Analyzer   string
	Creative   string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:     strings.TrimSpace(routerRaw),
		QuickReply: strings.TrimSpace(quickReplyRaw),
		Planner:    strings.TrimSpace(plannerRaw),
		Synthesis:  strings.TrimSpace(synthesisRaw),
		Memory:     strings.TrimSpace(memoryRaw),
		Analyzer:   strings.TrimSpace(analyzerRaw),
		Creative:   strings.TrimSpace(creativeRaw),
	}
}

// Validate reports the first empty prompt, if any.
func (p PromptSet) Validate() (string, bool) {
	for name, v := range map[string]string{
		"router":      p.Router,
		"quick_reply": p.QuickReply,
		"planner":     p.Planner,
		"synthesis":   p.Synthesis,
		"memory":      p.Memory,
		"analyzer":    p.Analyzer,
		"creative":    p.Creative,
	} {
		if v == "" {
			return name, false
		}
	}
	return "", true
}
