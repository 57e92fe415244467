package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"neograph/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

// Complete performs one chat-completions round-trip over the given turn
// history, declaring the request's tools as function tools. It returns the
// model's text fragments, any requested tool calls, and the stop signal; it
// never executes tools itself.
func (c *CompletionOpenAIClient) Complete(
	ctx context.Context,
	req ai.CompletionRequest,
	opts ...ai.GenerateOption,
) (*ai.Completion, error) {
	client := c.ChatClient
	if client == nil {
		return nil, fmt.Errorf("openai chat client not configured")
	}

	options := ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.2,
		Thinking:    "",
	}
	for _, o := range opts {
		o(&options)
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.SystemPrompts)+len(req.Turns))
	for _, sp := range append(append([]string{}, req.SystemPrompts...), options.SystemPrompts...) {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	for _, turn := range req.Turns {
		switch turn.Role {
		case ai.RoleUser:
			msgs = append(msgs, openai.UserMessage(turn.Text))
		case ai.RoleAssistant:
			// Replay the provider-native message when we produced it; it
			// carries the tool_calls block the API expects to see echoed.
			if raw, ok := turn.Raw.(openai.ChatCompletionMessageParamUnion); ok {
				msgs = append(msgs, raw)
				continue
			}
			msgs = append(msgs, openai.AssistantMessage(turn.Text))
		case ai.RoleTool:
			for _, tr := range turn.ToolResults {
				msgs = append(msgs, openai.ToolMessage(marshalPayload(tr.Payload), tr.ID))
			}
		}
	}

	openaiTools := make([]openai.ChatCompletionToolUnionParam, len(req.Tools))
	for i, tool := range req.Tools {
		openaiTools[i] = openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        tool.Name,
			Description: openai.String(tool.Description),
			Parameters:  tool.Parameters,
		})
	}

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(options.Model),
		Messages:    msgs,
		Temperature: openai.Float(options.Temperature),
	}
	if len(openaiTools) > 0 {
		body.Tools = openaiTools
	}

	if options.Thinking != "" {
		// gpt-5 models only accept temperature 1.0 when reasoning is enabled
		if c.chatURL == "" {
			body.Temperature = openai.Float(1.0)
		}
		body.ReasoningEffort = shared.ReasoningEffort(options.Thinking)
	}

	start := time.Now()
	response, err := client.Chat.Completions.New(ctx, body)
	if err != nil {
		return nil, err
	}
	duration := time.Since(start).Milliseconds()

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   duration,
	})

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response from model")
	}
	choice := response.Choices[0]

	completion := &ai.Completion{
		Raw: choice.Message.ToParam(),
	}
	if choice.Message.Content != "" {
		completion.Texts = append(completion.Texts, choice.Message.Content)
	}

	for _, tc := range choice.Message.ToolCalls {
		ftc := tc.AsFunction()

		var input map[string]any
		if ftc.Function.Arguments != "" {
			// Malformed arguments surface downstream as an invalid-arguments
			// tool result, so a nil map is the right degraded value here.
			_ = json.Unmarshal([]byte(ftc.Function.Arguments), &input)
		}

		completion.ToolCalls = append(completion.ToolCalls, ai.ToolCall{
			ID:    ftc.ID,
			Name:  ftc.Function.Name,
			Input: input,
		})
	}

	switch {
	case len(completion.ToolCalls) > 0:
		completion.Stop = ai.StopToolUse
	case choice.FinishReason == "stop":
		completion.Stop = ai.StopEndTurn
	default:
		completion.Stop = ai.StopOther
	}

	return completion, nil
}

// GenerateCompletionWithFormat sends a single-turn prompt with the response
// constrained by a JSON schema derived from out, and returns the raw reply
// text. Decoding is left to the caller so it can repair the reply first.
func (c *CompletionOpenAIClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) (string, error) {
	client := c.ChatClient
	if client == nil {
		return "", fmt.Errorf("openai chat client not configured")
	}

	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return "", fmt.Errorf("out must be a non-nil pointer")
	}

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        name,
		Description: openai.String(description),
		Schema:      ai.GenerateSchema(out),
		Strict:      openai.Bool(true),
	}

	options := ai.GenerateOptions{
		Model:       c.wikiModel,
		Temperature: 0.3,
		Thinking:    "",
	}
	for _, o := range opts {
		o(&options)
	}

	msgs := []openai.ChatCompletionMessageParamUnion{}
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(options.Model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
		Messages:    msgs,
		Temperature: openai.Float(options.Temperature),
	}

	if options.Thinking != "" {
		// gpt-5 models only accept temperature 1.0 when reasoning is enabled
		if c.chatURL == "" {
			body.Temperature = openai.Float(1.0)
		}
		body.ReasoningEffort = shared.ReasoningEffort(options.Thinking)
	}

	start := time.Now()
	response, err := client.Chat.Completions.New(ctx, body)
	if err != nil {
		return "", err
	}
	duration := time.Since(start).Milliseconds()

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   duration,
	})

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response from model")
	}

	return response.Choices[0].Message.Content, nil
}

func marshalPayload(payload any) string {
	if s, ok := payload.(string); ok {
		return s
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(data)
}
