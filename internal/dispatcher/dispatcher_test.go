package dispatcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/Rorical/zoltar/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type capturedRequest struct {
	path string
	body string
}

func newBackend(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		captured.path = r.URL.Path
		captured.body = string(data)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestDispatchDirectSuccess(t *testing.T) {
	srv, captured := newBackend(t, http.StatusOK, `{"text":"It burns eternal."}`)
	c := New(srv.URL, WithLogger(testLogger()), WithHints(Hints{Topic: "myth"}))

	res := c.Dispatch(context.Background(), models.Direct, "What is the river of fire?")

	require.True(t, res.OK())
	assert.Equal(t, "It burns eternal.", res.Text)
	assert.Nil(t, res.Sources)
	assert.Equal(t, DefaultGeneratePath, captured.path)
	assert.JSONEq(t, `{"text":"What is the river of fire?"}`, captured.body)
}

func TestDispatchGroundedWithSourcesAndHints(t *testing.T) {
	srv, captured := newBackend(t, http.StatusOK, `{"text":"They are ancient.","sources":["myth-1","myth-2"]}`)
	c := New(srv.URL+"/", WithLogger(testLogger()), WithHints(Hints{Topic: "astronomy", Level: "beginner"}))

	res := c.Dispatch(context.Background(), models.Grounded, "Tell me of the stars")

	require.True(t, res.OK())
	assert.Equal(t, "They are ancient.", res.Text)
	assert.Equal(t, []string{"myth-1", "myth-2"}, res.Sources)
	assert.Equal(t, DefaultTeacherPath, captured.path)
	assert.Equal(t, "astronomy", gjson.Get(captured.body, "topic").String())
	assert.Equal(t, "beginner", gjson.Get(captured.body, "level").String())
}

func TestDispatchDirectIgnoresSources(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `{"text":"Yes.","sources":["x"]}`)
	c := New(srv.URL, WithLogger(testLogger()))

	res := c.Dispatch(context.Background(), models.Direct, "q")

	require.True(t, res.OK())
	assert.Nil(t, res.Sources)
}

func TestDispatchCustomPaths(t *testing.T) {
	srv, captured := newBackend(t, http.StatusOK, `{"text":"ok"}`)
	c := New(srv.URL, WithLogger(testLogger()), WithPaths("/v2/ask", ""))

	c.Dispatch(context.Background(), models.Direct, "q")
	assert.Equal(t, "/v2/ask", captured.path)
	assert.Equal(t, srv.URL+DefaultTeacherPath, c.Endpoint(models.Grounded))
}

func TestDispatchBackendErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"fastapi detail", http.StatusInternalServerError, `{"detail":"Error en RAG"}`, "Error en RAG"},
		{"validation detail", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, `[{"msg":"field required"}]`},
		{"json without detail", http.StatusBadGateway, `{"error":"x"}`, ""},
		{"plain text", http.StatusServiceUnavailable, "  upstream down \n", "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newBackend(t, tt.status, tt.body)
			c := New(srv.URL, WithLogger(testLogger()))

			res := c.Dispatch(context.Background(), models.Direct, "q")

			require.False(t, res.OK())
			assert.Equal(t, models.BackendError, res.Failure.Kind)
			assert.Equal(t, tt.status, res.Failure.StatusCode)
			assert.Equal(t, tt.wantDetail, res.Failure.Detail)
		})
	}
}

func TestDispatchWhitespaceTextIsAnAnswer(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `{"text":"   "}`)
	c := New(srv.URL, WithLogger(testLogger()))

	res := c.Dispatch(context.Background(), models.Direct, "q")

	require.True(t, res.OK())
	assert.Equal(t, "   ", res.Text)
}

func TestDispatchMalformed(t *testing.T) {
	bodies := map[string]string{
		"not json":      "<html>oops</html>",
		"missing text":  `{"answer":"old shape"}`,
		"empty text":    `{"text":""}`,
		"non-string":    `{"text":42}`,
		"empty payload": ``,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv, _ := newBackend(t, http.StatusOK, body)
			c := New(srv.URL, WithLogger(testLogger()))

			res := c.Dispatch(context.Background(), models.Grounded, "q")

			require.False(t, res.OK())
			assert.Equal(t, models.MalformedResponse, res.Failure.Kind)
		})
	}
}

type failingClient struct{ err error }

func (f failingClient) Do(*http.Request) (*http.Response, error) { return nil, f.err }

func TestDispatchTransportFailure(t *testing.T) {
	cause := errors.New("connection refused")
	c := New("http://oracle.invalid", WithLogger(testLogger()), WithHTTPClient(failingClient{err: cause}))

	res := c.Dispatch(context.Background(), models.Direct, "q")

	require.False(t, res.OK())
	assert.Equal(t, models.TransportFailure, res.Failure.Kind)
	assert.ErrorIs(t, res.Failure, cause)
}

func TestDispatchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL, WithLogger(testLogger()), WithTimeout(20*time.Millisecond))

	res := c.Dispatch(context.Background(), models.Direct, "q")

	require.False(t, res.OK())
	assert.Equal(t, models.TransportFailure, res.Failure.Kind)
}

type fakeCompleter struct {
	resp openai.ChatCompletionResponse
	err  error
	req  openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestOpenAIBackendSuccess(t *testing.T) {
	fc := &fakeCompleter{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "It burns eternal."}}},
	}}
	b := NewOpenAIBackend(fc, "", PersonaBaseline, 0, testLogger())

	res := b.Dispatch(context.Background(), models.Direct, "What is the river of fire?")

	require.True(t, res.OK())
	assert.Equal(t, "It burns eternal.", res.Text)
	assert.Equal(t, DefaultModel, fc.req.Model)
	require.Len(t, fc.req.Messages, 2)
	assert.Equal(t, SystemPrompt(PersonaBaseline), fc.req.Messages[0].Content)
	assert.Equal(t, "What is the river of fire?", fc.req.Messages[1].Content)
}

func TestOpenAIBackendFailures(t *testing.T) {
	apiErr := &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}
	res := NewOpenAIBackend(&fakeCompleter{err: apiErr}, "m", "", time.Second, testLogger()).
		Dispatch(context.Background(), models.Direct, "q")
	require.False(t, res.OK())
	assert.Equal(t, models.BackendError, res.Failure.Kind)
	assert.Equal(t, 429, res.Failure.StatusCode)
	assert.Equal(t, "rate limited", res.Failure.Detail)

	res = NewOpenAIBackend(&fakeCompleter{err: errors.New("dial tcp")}, "m", "", time.Second, testLogger()).
		Dispatch(context.Background(), models.Direct, "q")
	require.False(t, res.OK())
	assert.Equal(t, models.TransportFailure, res.Failure.Kind)

	res = NewOpenAIBackend(&fakeCompleter{}, "m", "", time.Second, testLogger()).
		Dispatch(context.Background(), models.Direct, "q")
	require.False(t, res.OK())
	assert.Equal(t, models.MalformedResponse, res.Failure.Kind)
}

type staticBackend struct {
	text  string
	modes []models.Mode
}

func (s *staticBackend) Dispatch(_ context.Context, mode models.Mode, _ string) models.AnswerResult {
	s.modes = append(s.modes, mode)
	return models.Success(s.text, nil)
}

func TestRouter(t *testing.T) {
	direct := &staticBackend{text: "direct"}
	grounded := &staticBackend{text: "grounded"}
	r := NewRouter(direct, grounded)

	assert.Equal(t, "direct", r.Dispatch(context.Background(), models.Direct, "q").Text)
	assert.Equal(t, "grounded", r.Dispatch(context.Background(), models.Grounded, "q").Text)
	assert.Equal(t, []models.Mode{models.Direct}, direct.modes)
	assert.Equal(t, []models.Mode{models.Grounded}, grounded.modes)
}
