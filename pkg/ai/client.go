package ai

import (
	"context"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"

	"julianmorley.ca/pureview/api/pkg/config"
	"julianmorley.ca/pureview/api/pkg/global"
)

const defaultDeployment = "gpt-35-turbo"

type completer func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)

// Insights writes sales narratives through an Azure OpenAI deployment.
type Insights struct {
	complete completer
	model    string
	logger   *zap.Logger
}

// NewInsights returns nil when the endpoint or key is missing.
func NewInsights(cfg config.OpenAIConfig, logger *zap.Logger) *Insights {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		logger.Info("AI insights disabled, Azure OpenAI credentials not provided")
		return nil
	}

	client := openai.NewClient(
		option.WithBaseURL(cfg.Endpoint),
		option.WithAPIKey(cfg.APIKey),
	)
	logger.Info("AI insights initialized with Azure OpenAI")
	return newInsights(func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
		return client.Chat.Completions.New(ctx, params)
	}, cfg.DeploymentName, logger)
}

func newInsights(complete completer, model string, logger *zap.Logger) *Insights {
	if model == "" {
		model = defaultDeployment
	}
	return &Insights{complete: complete, model: model, logger: logger}
}

func (i *Insights) generateCompletion(ctx context.Context, systemMessage, userMessage string) (string, error) {
	resp, err := i.complete(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(i.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(systemMessage),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(userMessage),
					},
				},
			},
		},
		MaxTokens:   openai.Int(1500),
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		i.logger.Warn("completion request failed", zap.Error(err))
		return "", global.Unavailable("failed to generate AI response", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", global.Unavailable("AI returned empty response", nil)
	}
	return resp.Choices[0].Message.Content, nil
}
