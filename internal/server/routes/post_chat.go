package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"neograph/internal/agent"
	"neograph/internal/server/middleware"
	"neograph/pkg/ai"
	"neograph/pkg/codegraph"
	graphpgx "neograph/pkg/codegraph/pgx"
	"neograph/pkg/logger"
)

// ChatHandler answers one natural-language question about the code graph.
func ChatHandler(c echo.Context) error {
	type chatBody struct {
		Message   string  `json:"message" validate:"required"`
		RepoID    *string `json:"repo_id"`
		AgentType string  `json:"agent_type"`
		Model     string  `json:"model"`
		Thinking  string  `json:"thinking"`
	}

	type chatResponse struct {
		Message   string                 `json:"message,omitempty"`
		Response  string                 `json:"response,omitempty"`
		ToolCalls []agent.ToolCallRecord `json:"tool_calls"`
	}

	data := new(chatBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, chatResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, chatResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	engine := codegraph.NewEngine(graphpgx.NewGraphDBStore(app.DBConn))
	orch := agent.NewOrchestrator(app.AI, agent.NewRegistry(engine))

	opts := []ai.GenerateOption{}
	if data.Model != "" {
		opts = append(opts, ai.WithModel(data.Model))
	}
	if data.Thinking != "" {
		opts = append(opts, ai.WithThinking(data.Thinking))
	}

	before := app.AI.GetMetrics()
	result, err := orch.Converse(ctx, data.Message, agent.ProfileFromString(data.AgentType), data.RepoID, opts...)
	if err != nil {
		logger.Error("Conversation failed", "err", err)
		return c.JSON(http.StatusBadGateway, chatResponse{
			Message: "The completion service is unavailable",
		})
	}

	// The client accumulates metrics for the whole process; the difference is
	// what this conversation consumed.
	after := app.AI.GetMetrics()
	logger.Debug("Model usage",
		"input_tokens", after.InputTokens-before.InputTokens,
		"output_tokens", after.OutputTokens-before.OutputTokens,
		"duration_ms", after.DurationMs-before.DurationMs)

	return c.JSON(http.StatusOK, chatResponse{
		Response:  result.Response,
		ToolCalls: result.ToolCalls,
	})
}
