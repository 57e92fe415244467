// Package agent drives bounded tool-calling conversations between a user
// request and a completion service, dispatching graph lookups through a
// closed capability registry.
package agent

import (
	"context"
	"fmt"
	"strings"

	"neograph/pkg/ai"
	"neograph/pkg/logger"
)

// maxIterations bounds the completion round-trips of one conversation.
const maxIterations = 10

// fallbackResponse is returned when the model never signals end of turn
// within the iteration bound.
const fallbackResponse = "Maximum iterations reached. The question could not be answered within the allowed number of tool calls. Please try rephrasing it."

// ToolCallRecord is one audit entry: what was called, with what, and what
// came back. Error holds the failure text when the call faulted.
type ToolCallRecord struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Input  map[string]any `json:"input"`
	Result any            `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Result is the outcome of one conversation: the final answer and the
// ordered log of every tool invocation made while producing it.
type Result struct {
	Response  string           `json:"response"`
	ToolCalls []ToolCallRecord `json:"tool_calls"`
}

// Orchestrator runs the multi-turn protocol against a completion client.
type Orchestrator struct {
	client   ai.CompletionClient
	registry *Registry
}

func NewOrchestrator(client ai.CompletionClient, registry *Registry) *Orchestrator {
	return &Orchestrator{client: client, registry: registry}
}

// Converse answers one user message. Tool faults are absorbed into
// error-tagged results so the model can react to them; only a failure of the
// completion service itself propagates, since no degraded answer exists
// without it. opts apply to every completion round-trip of the conversation.
func (o *Orchestrator) Converse(ctx context.Context, message string, profile Profile, repoID *string, opts ...ai.GenerateOption) (*Result, error) {
	turns := []ai.Turn{{Role: ai.RoleUser, Text: message}}
	audit := make([]ToolCallRecord, 0)

	req := ai.CompletionRequest{
		SystemPrompts: SystemPrompts(profile, repoID),
		Tools:         o.registry.Schemas(),
	}

	for iteration := 0; iteration < maxIterations; iteration++ {
		req.Turns = turns
		completion, err := o.client.Complete(ctx, req, opts...)
		if err != nil {
			return nil, fmt.Errorf("completion request failed: %w", err)
		}

		switch completion.Stop {
		case ai.StopEndTurn:
			return &Result{
				Response:  strings.Join(completion.Texts, ""),
				ToolCalls: audit,
			}, nil

		case ai.StopToolUse:
			results := make([]ai.ToolResult, 0, len(completion.ToolCalls))
			for _, call := range completion.ToolCalls {
				record := ToolCallRecord{ID: call.ID, Name: call.Name, Input: call.Input}
				payload, err := o.registry.Execute(ctx, call.Name, call.Input)
				if err != nil {
					record.Error = err.Error()
					results = append(results, ai.ToolResult{
						ID:      call.ID,
						Payload: map[string]any{"error": err.Error()},
						IsError: true,
					})
				} else {
					record.Result = payload
					results = append(results, ai.ToolResult{ID: call.ID, Payload: payload})
				}
				audit = append(audit, record)
			}
			turns = append(turns,
				ai.Turn{Role: ai.RoleAssistant, ToolCalls: completion.ToolCalls, Raw: completion.Raw},
				ai.Turn{Role: ai.RoleTool, ToolResults: results},
			)

		default:
			logger.Warn("conversation ended on unexpected stop signal", "stop", completion.Stop)
			return &Result{Response: fallbackResponse, ToolCalls: audit}, nil
		}
	}

	logger.Warn("conversation exhausted its iteration bound", "iterations", maxIterations, "tool_calls", len(audit))
	return &Result{Response: fallbackResponse, ToolCalls: audit}, nil
}
