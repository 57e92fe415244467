package openai

import (
	"sync"

	"neograph/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// CompletionOpenAIClient implements ai.CompletionClient against an OpenAI
// compatible chat-completions endpoint.
type CompletionOpenAIClient struct {
	chatModel string
	wikiModel string

	chatURL string
	chatKey string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient *openai.Client
}

// NewCompletionOpenAIClientParams configures a CompletionOpenAIClient.
//
// ChatModel is used for tool-calling conversations, WikiModel for single-shot
// documentation generation. WikiModel falls back to ChatModel when empty.
// ChatURL may point at any OpenAI-compatible endpoint; empty means the
// default OpenAI base URL.
type NewCompletionOpenAIClientParams struct {
	ChatModel string
	WikiModel string

	ChatURL string
	ChatKey string
}

// NewCompletionOpenAIClient creates a client configured with the provided
// parameters.
func NewCompletionOpenAIClient(
	params NewCompletionOpenAIClientParams,
) *CompletionOpenAIClient {
	wikiModel := params.WikiModel
	if wikiModel == "" {
		wikiModel = params.ChatModel
	}

	return &CompletionOpenAIClient{
		chatModel: params.ChatModel,
		wikiModel: wikiModel,

		chatURL: params.ChatURL,
		chatKey: params.ChatKey,

		ChatClient: newOpenaiClient(params.ChatURL, params.ChatKey),
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

func (c *CompletionOpenAIClient) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
}

// ResetMetrics clears the accumulated usage metrics.
func (c *CompletionOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns the usage metrics accumulated since the last reset.
func (c *CompletionOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	return c.metrics
}
