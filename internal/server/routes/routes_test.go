package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"neograph/internal/server/middleware"
	"neograph/pkg/ai"
	"neograph/pkg/logger"
)

type testValidator struct {
	validate *validator.Validate
}

func (tv *testValidator) Validate(i any) error {
	return tv.validate.Struct(i)
}

// meteredClient answers every completion with end of turn and charges a
// fixed amount of usage per call, like a real adapter accumulating metrics
// over the process lifetime.
type meteredClient struct {
	metrics ai.ModelMetrics
}

func (m *meteredClient) Complete(ctx context.Context, req ai.CompletionRequest, opts ...ai.GenerateOption) (*ai.Completion, error) {
	m.metrics.InputTokens += 10
	m.metrics.OutputTokens += 5
	m.metrics.TotalTokens += 15
	m.metrics.DurationMs += 7
	return &ai.Completion{Texts: []string{"answer"}, Stop: ai.StopEndTurn}, nil
}

func (m *meteredClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (m *meteredClient) ResetMetrics()               { m.metrics = ai.ModelMetrics{} }
func (m *meteredClient) GetMetrics() ai.ModelMetrics { return m.metrics }

// capturingLogger records every debug entry so tests can assert on logged
// key-value pairs.
type capturingLogger struct {
	debug []map[string]any
}

func (l *capturingLogger) record(keyvals []any) {
	entry := map[string]any{}
	for i := 0; i+1 < len(keyvals); i += 2 {
		if key, ok := keyvals[i].(string); ok {
			entry[key] = keyvals[i+1]
		}
	}
	l.debug = append(l.debug, entry)
}

func (l *capturingLogger) Debug(message string, keyvals ...any) { l.record(keyvals) }
func (l *capturingLogger) Info(message string, keyvals ...any)  {}
func (l *capturingLogger) Warn(message string, keyvals ...any)  {}
func (l *capturingLogger) Error(message string, keyvals ...any) {}
func (l *capturingLogger) Fatal(message string, keyvals ...any) {}

func newAppContext(t *testing.T, method, target, body string, app *middleware.App) (*middleware.AppContext, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = &testValidator{validate: validator.New()}

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return &middleware.AppContext{Context: e.NewContext(req, rec), App: app}, rec
}

func TestChatLogsPerRequestModelUsage(t *testing.T) {
	capture := &capturingLogger{}
	logger.Init(capture)
	defer logger.Init(nil)

	client := &meteredClient{}
	app := &middleware.App{AI: client}

	for i := 0; i < 2; i++ {
		c, rec := newAppContext(t, http.MethodPost, "/api/chat", `{"message": "what calls main?"}`, app)
		if err := ChatHandler(c); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i+1, err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	if len(capture.debug) != 2 {
		t.Fatalf("expected 2 usage entries, got %d", len(capture.debug))
	}
	// The client has accumulated 20 input tokens by now; the second entry
	// must report only what its own conversation consumed.
	second := capture.debug[1]
	if got := second["input_tokens"]; got != 10 {
		t.Errorf("expected per-request input_tokens 10, got %v", got)
	}
	if got := second["output_tokens"]; got != 5 {
		t.Errorf("expected per-request output_tokens 5, got %v", got)
	}
	if got := second["duration_ms"]; got != int64(7) {
		t.Errorf("expected per-request duration_ms 7, got %v", got)
	}
}

func TestChatRejectsMissingMessage(t *testing.T) {
	c, rec := newAppContext(t, http.MethodPost, "/api/chat", `{}`, &middleware.App{AI: &meteredClient{}})
	if err := ChatHandler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGetWikiRejectsMalformedRepoID(t *testing.T) {
	// A nil pool proves validation runs before any store access.
	for _, id := range []string{"not-a-uuid", "123", "0b4e1c9a-2f33-4d1b-9a6e"} {
		c, rec := newAppContext(t, http.MethodGet, "/api/wiki/"+id, "", &middleware.App{})
		c.SetParamNames("repo_id")
		c.SetParamValues(id)

		if err := GetWikiHandler(c); err != nil {
			t.Fatalf("id %q: unexpected error: %v", id, err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("id %q: expected 400, got %d", id, rec.Code)
		}
	}
}

func TestGetWikiPageRejectsMalformedRepoID(t *testing.T) {
	c, rec := newAppContext(t, http.MethodGet, "/api/wiki/abc/pages/overview", "", &middleware.App{})
	c.SetParamNames("repo_id", "slug")
	c.SetParamValues("abc", "overview")

	if err := GetWikiPageHandler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
