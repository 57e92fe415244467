package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"neograph/pkg/ai"
	"neograph/pkg/codegraph"
)

type scriptedClient struct {
	script []func(req ai.CompletionRequest) (*ai.Completion, error)
	calls  int
	opts   []ai.GenerateOption
}

func (c *scriptedClient) Complete(ctx context.Context, req ai.CompletionRequest, opts ...ai.GenerateOption) (*ai.Completion, error) {
	idx := c.calls
	c.calls++
	c.opts = opts
	if idx >= len(c.script) {
		idx = len(c.script) - 1
	}
	return c.script[idx](req)
}

func (c *scriptedClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not scripted")
}

func (c *scriptedClient) ResetMetrics()               {}
func (c *scriptedClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

type stubStore struct {
	codegraph.Store
	rows   []map[string]any
	rowErr error
}

func (s *stubStore) RawQuery(ctx context.Context, query string) ([]map[string]any, error) {
	return s.rows, s.rowErr
}

func (s *stubStore) FunctionByName(ctx context.Context, name string) (*codegraph.FunctionRecord, error) {
	return nil, nil
}

func newTestRegistry(store codegraph.Store) *Registry {
	return NewRegistry(codegraph.NewEngine(store))
}

func endTurn(texts ...string) func(ai.CompletionRequest) (*ai.Completion, error) {
	return func(ai.CompletionRequest) (*ai.Completion, error) {
		return &ai.Completion{Texts: texts, Stop: ai.StopEndTurn}, nil
	}
}

func toolUse(calls ...ai.ToolCall) func(ai.CompletionRequest) (*ai.Completion, error) {
	return func(ai.CompletionRequest) (*ai.Completion, error) {
		return &ai.Completion{ToolCalls: calls, Stop: ai.StopToolUse}, nil
	}
}

func TestConverseEndOfTurnFirstCall(t *testing.T) {
	client := &scriptedClient{script: []func(ai.CompletionRequest) (*ai.Completion, error){
		endTurn("The graph holds ", "42 functions."),
	}}
	orch := NewOrchestrator(client, newTestRegistry(&stubStore{}))

	result, err := orch.Converse(context.Background(), "how many functions?", ProfileExplorer, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("expected exactly one completion call, got %d", client.calls)
	}
	if result.Response != "The graph holds 42 functions." {
		t.Errorf("text fragments not concatenated: %q", result.Response)
	}
	if len(result.ToolCalls) != 0 {
		t.Errorf("expected empty audit log, got %d entries", len(result.ToolCalls))
	}
}

func TestConverseExhaustsIterationBound(t *testing.T) {
	client := &scriptedClient{script: []func(ai.CompletionRequest) (*ai.Completion, error){
		toolUse(ai.ToolCall{ID: "t1", Name: CapRawQuery, Input: map[string]any{"query": "SELECT 1"}}),
	}}
	orch := NewOrchestrator(client, newTestRegistry(&stubStore{rows: []map[string]any{{"?column?": 1}}}))

	result, err := orch.Converse(context.Background(), "loop forever", ProfileExplorer, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls != maxIterations {
		t.Errorf("expected %d completion calls, got %d", maxIterations, client.calls)
	}
	if result.Response != fallbackResponse {
		t.Errorf("expected fallback response, got %q", result.Response)
	}
	if len(result.ToolCalls) != maxIterations {
		t.Errorf("expected %d audit entries, got %d", maxIterations, len(result.ToolCalls))
	}
}

func TestConverseToolFaultContinues(t *testing.T) {
	client := &scriptedClient{script: []func(ai.CompletionRequest) (*ai.Completion, error){
		toolUse(ai.ToolCall{ID: "t1", Name: "summon_demon", Input: map[string]any{}}),
		endTurn("That tool does not exist."),
	}}
	orch := NewOrchestrator(client, newTestRegistry(&stubStore{}))

	result, err := orch.Converse(context.Background(), "do something weird", ProfileExplorer, nil)
	if err != nil {
		t.Fatalf("tool fault must not propagate: %v", err)
	}
	if result.Response != "That tool does not exist." {
		t.Errorf("unexpected response: %q", result.Response)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(result.ToolCalls))
	}
	if result.ToolCalls[0].Error == "" {
		t.Error("expected the audit entry to carry the fault text")
	}
}

func TestConverseToolResultsCorrelated(t *testing.T) {
	var toolTurn *ai.Turn
	client := &scriptedClient{script: []func(ai.CompletionRequest) (*ai.Completion, error){
		toolUse(
			ai.ToolCall{ID: "a", Name: CapRawQuery, Input: map[string]any{"query": "SELECT 1"}},
			ai.ToolCall{ID: "b", Name: "bogus", Input: map[string]any{}},
		),
		func(req ai.CompletionRequest) (*ai.Completion, error) {
			last := req.Turns[len(req.Turns)-1]
			toolTurn = &last
			return &ai.Completion{Texts: []string{"done"}, Stop: ai.StopEndTurn}, nil
		},
	}}
	orch := NewOrchestrator(client, newTestRegistry(&stubStore{rows: []map[string]any{{"?column?": 1}}}))

	if _, err := orch.Converse(context.Background(), "two calls", ProfileExplorer, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toolTurn == nil || toolTurn.Role != ai.RoleTool {
		t.Fatalf("expected the last turn to carry tool results, got %+v", toolTurn)
	}
	if len(toolTurn.ToolResults) != 2 {
		t.Fatalf("expected 2 tool results in one turn, got %d", len(toolTurn.ToolResults))
	}
	if toolTurn.ToolResults[0].ID != "a" || toolTurn.ToolResults[1].ID != "b" {
		t.Errorf("results out of order: %+v", toolTurn.ToolResults)
	}
	if toolTurn.ToolResults[0].IsError || !toolTurn.ToolResults[1].IsError {
		t.Errorf("error tagging wrong: %+v", toolTurn.ToolResults)
	}
}

func TestConverseForwardsGenerateOptions(t *testing.T) {
	client := &scriptedClient{script: []func(ai.CompletionRequest) (*ai.Completion, error){
		endTurn("done"),
	}}
	orch := NewOrchestrator(client, newTestRegistry(&stubStore{}))

	_, err := orch.Converse(context.Background(), "hello", ProfileExplorer, nil,
		ai.WithModel("qwen3"), ai.WithThinking("medium"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var options ai.GenerateOptions
	for _, o := range client.opts {
		o(&options)
	}
	if options.Model != "qwen3" {
		t.Errorf("model override not forwarded, got %q", options.Model)
	}
	if options.Thinking != "medium" {
		t.Errorf("thinking override not forwarded, got %q", options.Thinking)
	}
}

func TestConverseCompletionFaultPropagates(t *testing.T) {
	client := &scriptedClient{script: []func(ai.CompletionRequest) (*ai.Completion, error){
		func(ai.CompletionRequest) (*ai.Completion, error) {
			return nil, errors.New("model unreachable")
		},
	}}
	orch := NewOrchestrator(client, newTestRegistry(&stubStore{}))

	_, err := orch.Converse(context.Background(), "hello", ProfileExplorer, nil)
	if err == nil || !strings.Contains(err.Error(), "model unreachable") {
		t.Errorf("expected the completion fault to propagate, got %v", err)
	}
}

func TestConverseUnexpectedStopFallsBack(t *testing.T) {
	client := &scriptedClient{script: []func(ai.CompletionRequest) (*ai.Completion, error){
		func(ai.CompletionRequest) (*ai.Completion, error) {
			return &ai.Completion{Stop: ai.StopOther}, nil
		},
	}}
	orch := NewOrchestrator(client, newTestRegistry(&stubStore{}))

	result, err := orch.Converse(context.Background(), "hello", ProfileExplorer, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Response != fallbackResponse {
		t.Errorf("expected fallback response, got %q", result.Response)
	}
}

func TestProfileFromString(t *testing.T) {
	tests := []struct {
		in   string
		want Profile
	}{
		{"explorer", ProfileExplorer},
		{"analyzer", ProfileAnalyzer},
		{"doc-writer", ProfileDocWriter},
		{"", ProfileExplorer},
		{"hacker", ProfileExplorer},
	}
	for _, tt := range tests {
		if got := ProfileFromString(tt.in); got != tt.want {
			t.Errorf("ProfileFromString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
