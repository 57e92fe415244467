package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"neograph/pkg/ai"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
)

// Complete performs one chat round-trip over the given turn history with the
// request's tools declared. Ollama does not assign tool-call ids, so ids are
// minted here; results are replayed positionally as tool messages, which is
// the correlation Ollama expects.
func (c *CompletionOllamaClient) Complete(
	ctx context.Context,
	req ai.CompletionRequest,
	opts ...ai.GenerateOption,
) (*ai.Completion, error) {
	options := ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.2,
		Thinking:    "",
	}
	for _, o := range opts {
		o(&options)
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	msgs := make([]api.Message, 0, len(req.SystemPrompts)+len(req.Turns))
	for _, sp := range append(append([]string{}, req.SystemPrompts...), options.SystemPrompts...) {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	for _, turn := range req.Turns {
		switch turn.Role {
		case ai.RoleUser:
			msgs = append(msgs, api.Message{Role: "user", Content: turn.Text})
		case ai.RoleAssistant:
			if raw, ok := turn.Raw.(api.Message); ok {
				msgs = append(msgs, raw)
				continue
			}
			msgs = append(msgs, api.Message{Role: "assistant", Content: turn.Text})
		case ai.RoleTool:
			for _, tr := range turn.ToolResults {
				msgs = append(msgs, api.Message{Role: "tool", Content: marshalPayload(tr.Payload)})
			}
		}
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": options.Temperature},
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertTools(req.Tools)
	}

	if options.Thinking != "" {
		chatReq.Think = &api.ThinkValue{
			Value: options.Thinking,
		}
	}

	if err := sizeContextWindow(chatReq, msgs); err != nil {
		return nil, err
	}

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, chatReq, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if len(cr.Message.ToolCalls) > 0 {
			final.Message.ToolCalls = cr.Message.ToolCalls
		}
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return nil, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
	})

	completion := &ai.Completion{
		Raw: api.Message{
			Role:      "assistant",
			Content:   final.Message.Content,
			ToolCalls: final.Message.ToolCalls,
		},
	}
	if final.Message.Content != "" {
		completion.Texts = append(completion.Texts, final.Message.Content)
	}

	for _, tc := range final.Message.ToolCalls {
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}

		var input map[string]any
		if argsBytes, err := json.Marshal(tc.Function.Arguments); err == nil {
			_ = json.Unmarshal(argsBytes, &input)
		}

		completion.ToolCalls = append(completion.ToolCalls, ai.ToolCall{
			ID:    id,
			Name:  tc.Function.Name,
			Input: input,
		})
	}

	switch {
	case len(completion.ToolCalls) > 0:
		completion.Stop = ai.StopToolUse
	case final.Done:
		completion.Stop = ai.StopEndTurn
	default:
		completion.Stop = ai.StopOther
	}

	return completion, nil
}

// GenerateCompletionWithFormat sends a single-turn prompt with the response
// constrained by a JSON schema derived from out, and returns the raw reply
// text. Decoding is left to the caller so it can repair the reply first. The
// name and description are part of the client contract but Ollama's format
// field carries the schema alone.
func (c *CompletionOllamaClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) (string, error) {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return "", errors.New("out must be a non-nil pointer")
	}

	formatBytes, err := json.Marshal(ai.GenerateSchema(out))
	if err != nil {
		return "", err
	}

	options := ai.GenerateOptions{
		Model:       c.wikiModel,
		Temperature: 0.3,
		Thinking:    "",
	}
	for _, o := range opts {
		o(&options)
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	msgs := make([]api.Message, 0, len(options.SystemPrompts)+1)
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	stream := false
	chatReq := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Format:   json.RawMessage(formatBytes),
		Options:  map[string]any{"temperature": options.Temperature},
	}

	if options.Thinking != "" {
		chatReq.Think = &api.ThinkValue{
			Value: options.Thinking,
		}
	}

	if err := sizeContextWindow(chatReq, msgs); err != nil {
		return "", err
	}

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, chatReq, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
	})

	return final.Message.Content, nil
}

// sizeContextWindow raises num_ctx above the Ollama default when the prompt
// would not fit, using a tiktoken estimate of the message text.
func sizeContextWindow(req *api.ChatRequest, msgs []api.Message) error {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return err
	}

	var text strings.Builder
	for _, m := range msgs {
		text.WriteString(m.Content)
	}

	tokens := 200 + len(enc.Encode(text.String(), nil, nil))
	if tokens > 4096 {
		req.Options["num_ctx"] = tokens
	}
	return nil
}

func convertTools(tools []ai.Tool) api.Tools {
	ollamaTools := make(api.Tools, len(tools))
	for i, tool := range tools {
		params := api.ToolFunctionParameters{
			Type:       "object",
			Required:   []string{},
			Properties: api.NewToolPropertiesMap(),
		}

		if tool.Parameters != nil {
			if props, ok := tool.Parameters["properties"].(map[string]any); ok {
				for name, prop := range props {
					if propMap, ok := prop.(map[string]any); ok {
						tp := api.ToolProperty{}
						if t, ok := propMap["type"].(string); ok {
							tp.Type = api.PropertyType([]string{t})
						}
						if desc, ok := propMap["description"].(string); ok {
							tp.Description = desc
						}
						if enum, ok := propMap["enum"].([]any); ok {
							tp.Enum = enum
						}
						params.Properties.Set(name, tp)
					}
				}
			}
			if reqInterface, ok := tool.Parameters["required"].([]any); ok {
				params.Required = make([]string, len(reqInterface))
				for i, v := range reqInterface {
					if s, ok := v.(string); ok {
						params.Required[i] = s
					}
				}
			} else if req, ok := tool.Parameters["required"].([]string); ok {
				params.Required = req
			}
		}

		ollamaTools[i] = api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		}
	}
	return ollamaTools
}

func marshalPayload(payload any) string {
	if s, ok := payload.(string); ok {
		return s
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(data)
}
