// Package llm wraps the text completion service. It is the only place that
// knows about the completion API; callers see the Completer interface.
package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"

	"wadigest/internal/infra/config"
)

// Completer produces text completions. May fail transiently; retry policy
// belongs to the caller.
type Completer interface {
	// Complete returns a free-form completion for prompt under the given
	// system instructions.
	Complete(ctx context.Context, system, prompt string) (string, error)

	// CompleteJSON is Complete constrained to a JSON object output.
	CompleteJSON(ctx context.Context, system, prompt string) (string, error)
}

// Client is an OpenAI SDK-compatible completion client.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new completion client.
func NewClient(cfg *config.ModelConfig) *Client {
	opts := []option.RequestOption{}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	cl := openai.NewClient(opts...)
	return &Client{
		client: &cl,
		model:  cfg.Model,
	}
}

// Complete sends a chat completion request and returns the first choice.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	return c.complete(ctx, system, prompt, false)
}

// CompleteJSON sends a chat completion request constrained to JSON output.
func (c *Client) CompleteJSON(ctx context.Context, system, prompt string) (string, error) {
	return c.complete(ctx, system, prompt, true)
}

func (c *Client) complete(ctx context.Context, system, prompt string, jsonOutput bool) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Role:    constant.System("system"),
					Content: openai.ChatCompletionSystemMessageParamContentUnion{OfString: openai.String(system)},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Role:    constant.User("user"),
					Content: openai.ChatCompletionUserMessageParamContentUnion{OfString: openai.String(prompt)},
				},
			},
		},
	}

	if jsonOutput {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{
				Type: constant.JSONObject("json_object"),
			},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Ensure Client implements Completer.
var _ Completer = (*Client)(nil)
