package script

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

var novaModels = map[string]string{
	"nova-lite": "us.amazon.nova-2-lite-v1:0",
}

// IsNovaModel reports whether model names a Bedrock Nova model alias.
func IsNovaModel(model string) bool {
	_, ok := novaModels[model]
	return ok
}

// ConverseAPI is the Bedrock runtime call the Nova generator uses.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// NovaGenerator writes scripts with Amazon Nova through Bedrock.
type NovaGenerator struct {
	model  string
	client ConverseAPI
}

func NewNovaGenerator(model string, client ConverseAPI) *NovaGenerator {
	return &NovaGenerator{model: model, client: client}
}

func (g *NovaGenerator) Generate(ctx context.Context, opts GenerateOptions) (*Script, error) {
	theme, err := checkOptions(opts)
	if err != nil {
		return nil, err
	}

	modelID := novaModels[g.model]
	if modelID == "" {
		modelID = novaModels["nova-lite"]
	}

	return generateWithRetry(ctx, "nova", opts.Names, func(ctx context.Context) (string, error) {
		resp, err := g.client.Converse(ctx, &bedrockruntime.ConverseInput{
			ModelId: aws.String(modelID),
			System: []types.SystemContentBlock{
				&types.SystemContentBlockMemberText{Value: buildSystemPrompt(theme)},
			},
			Messages: []types.Message{
				{
					Role: types.ConversationRoleUser,
					Content: []types.ContentBlock{
						&types.ContentBlockMemberText{Value: buildUserPrompt(opts, theme)},
					},
				},
			},
			InferenceConfig: &types.InferenceConfiguration{
				MaxTokens:   aws.Int32(maxTokens),
				Temperature: aws.Float32(temperature),
			},
		})
		if err != nil {
			return "", fmt.Errorf("bedrock converse: %w", err)
		}
		return extractNovaText(resp), nil
	})
}

func extractNovaText(resp *bedrockruntime.ConverseOutput) string {
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			return tb.Value
		}
	}
	return ""
}
