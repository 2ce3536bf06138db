package llm

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	openrouterx "github.com/tanpawarit/dep-brain/pkg/openrouter"
)

var _ contractx.Generator = (*Generator)(nil)

// Generator is the text-generation collaborator for one region. Plain requests
// go through the eino chat model; structured requests use the raw SDK so the
// JSON-object response format can be set per call.
type Generator struct {
	region contractx.Region
	chat   einomodel.BaseChatModel
	client *openaisdk.Client
	model  string
}

func NewGenerator(region contractx.Region, chat einomodel.BaseChatModel, client *openaisdk.Client, modelName string) *Generator {
	return &Generator{
		region: region,
		chat:   chat,
		client: client,
		model:  strings.TrimSpace(modelName),
	}
}

// NewGeneratorFor builds the chat model and SDK client for a region.
func NewGeneratorFor(ctx context.Context, cfg Config, region contractx.Region) (*Generator, error) {
	orCfg := cfg.OpenRouterFor(region)
	chat, err := orCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, region, err)
	}
	return NewGenerator(region, chat, openrouterx.NewClient(orCfg), orCfg.Model), nil
}

func (g *Generator) Generate(ctx context.Context, req contractx.GenerateRequest) (string, error) {
	if strings.TrimSpace(req.User) == "" {
		return "", fmt.Errorf("%w: user content is required", contractx.ErrValidation)
	}
	if req.Structured && g.client != nil {
		return g.generateStructured(ctx, req)
	}
	if g.chat == nil {
		return "", fmt.Errorf("%w: %s chat model is not configured", contractx.ErrModelInvoke, g.region)
	}

	msgs := make([]*schema.Message, 0, 2)
	if sys := strings.TrimSpace(req.System); sys != "" {
		msgs = append(msgs, schema.SystemMessage(sys))
	}
	msgs = append(msgs, schema.UserMessage(req.User))

	var opts []einomodel.Option
	if req.Temperature >= 0 {
		opts = append(opts, einomodel.WithTemperature(req.Temperature))
	}

	msg, err := g.chat.Generate(ctx, msgs, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %s generate: %v", contractx.ErrModelInvoke, g.region, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%w: %s", contractx.ErrEmptyResponse, g.region)
	}
	return strings.TrimSpace(msg.Content), nil
}

func (g *Generator) generateStructured(ctx context.Context, req contractx.GenerateRequest) (string, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if sys := strings.TrimSpace(req.System); sys != "" {
		messages = append(messages, openaisdk.SystemMessage(sys))
	}
	messages = append(messages, openaisdk.UserMessage(req.User))

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(g.model),
		Messages: messages,
		ResponseFormat: openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if req.Temperature >= 0 {
		params.Temperature = openaisdk.Float(float64(req.Temperature))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %s structured generate: %v", contractx.ErrModelInvoke, g.region, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s returned no choices", contractx.ErrEmptyResponse, g.region)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: %s", contractx.ErrEmptyResponse, g.region)
	}
	return content, nil
}
