package router

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	promptx "github.com/tanpawarit/dep-brain/agent/prompt"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

const classifyTemperature float32 = 0.2

var _ contractx.Router = (*Router)(nil)

// Router classifies a query into a flow and, for trivial queries, answers it.
type Router struct {
	gen     contractx.Generator
	prompts promptx.PromptSet
	parser  schema.MessageParser[routerOutput]
}

type routerOutput struct {
	Flow    *string `json:"flow"`
	Content *string `json:"content"`
}

func New(gen contractx.Generator, prompts promptx.PromptSet) (*Router, error) {
	if gen == nil {
		return nil, fmt.Errorf("%w: router generator is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(prompts.Router) == "" || strings.TrimSpace(prompts.QuickReply) == "" {
		return nil, fmt.Errorf("%w: router prompts", contractx.ErrPromptMissing)
	}
	return &Router{
		gen:     gen,
		prompts: prompts,
		parser: schema.NewMessageJSONParser[routerOutput](&schema.MessageJSONParseConfig{
			ParseFrom: schema.MessageParseFromContent,
		}),
	}, nil
}

// Classify makes one structured generation call. Any failure to obtain a
// usable decision yields the sequential flow with no answer.
func (r *Router) Classify(ctx context.Context, query string) contractx.RouteDecision {
	raw, err := r.gen.Generate(ctx, contractx.GenerateRequest{
		System:      r.prompts.Router,
		User:        query,
		Temperature: classifyTemperature,
		Structured:  true,
	})
	if err != nil {
		return fallback(fmt.Sprintf("generation failed: %v", err))
	}

	out, err := r.parser.Parse(ctx, &schema.Message{Role: schema.Assistant, Content: stripCodeFence(raw)})
	if err != nil {
		return fallback(fmt.Sprintf("%v: %v", contractx.ErrSchemaViolation, err))
	}
	if out.Flow == nil {
		return fallback(fmt.Sprintf("%v: flow is missing", contractx.ErrSchemaViolation))
	}

	flow, ok := contractx.ParseFlow(*out.Flow)
	if !ok {
		log.Warn().Str("flow", *out.Flow).Msg("router returned unknown flow, using sequential")
		return contractx.RouteDecision{Flow: contractx.FlowSequential}
	}

	decision := contractx.RouteDecision{Flow: flow}
	if flow == contractx.FlowFast && out.Content != nil && strings.TrimSpace(*out.Content) != "" {
		decision.Answer = strings.TrimSpace(*out.Content)
		decision.HasAnswer = true
	}
	return decision
}

// QuickReply writes the fast-flow answer. An inline answer from Classify is
// used as is; otherwise one generation call is made.
func (r *Router) QuickReply(ctx context.Context, qs *statex.QueryState, inline string) (*statex.QueryState, error) {
	if qs == nil {
		return nil, fmt.Errorf("%w: query state is nil", contractx.ErrValidation)
	}

	qs.Stage = contractx.StageQuickResponse
	if answer := strings.TrimSpace(inline); answer != "" {
		qs.FinalOutput = answer
		qs.Record(contractx.SourceRouter, "Query deemed trivial. Answered inline with the routing decision.")
		return qs, nil
	}

	qs.Record(contractx.SourceRouter, "Query deemed trivial. Responding directly...")
	answer, err := r.gen.Generate(ctx, contractx.GenerateRequest{
		System:      r.prompts.QuickReply,
		User:        qs.OriginalQuery(),
		Temperature: contractx.DefaultTemperature,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return qs, ctxErr
		}
		log.Warn().Err(err).Str("query_id", qs.ID).Msg("quick reply failed")
		qs.Record(contractx.SourceRouter, "Quick reply failed: "+err.Error())
		qs.FinalOutput = contractx.FallbackQuickOutput
		return qs, nil
	}
	qs.FinalOutput = answer
	return qs, nil
}

func fallback(reason string) contractx.RouteDecision {
	log.Warn().Str("reason", reason).Msg("router fallback to sequential")
	return contractx.RouteDecision{Flow: contractx.FlowSequential, Fallback: reason}
}

// stripCodeFence removes a markdown code fence wrapping the payload, if any.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		// Single-line fence: drop the info string, e.g. ```json {...}```.
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexFunc(s, notWordRune); i > 0 {
			s = s[i:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
