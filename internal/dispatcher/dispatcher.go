// Package dispatcher sends questions to the oracle backends and normalizes
// every outcome into a models.AnswerResult.
package dispatcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/Rorical/zoltar/internal/models"
)

const (
	DefaultGeneratePath = "/api/generate"
	DefaultTeacherPath  = "/api/teacher"
	DefaultTimeout      = 60 * time.Second

	maxResponseBytes = 1 << 20
)

// Backend answers a question in a given mode. Implementations never return
// an error: all failures are carried in the result.
type Backend interface {
	Dispatch(ctx context.Context, mode models.Mode, query string) models.AnswerResult
}

// HTTPClient is the subset of *http.Client used here
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Hints are optional pass-through fields for the teacher endpoint
type Hints struct {
	Topic string
	Level string
}

// Client talks to the oracle HTTP backend
type Client struct {
	baseURL      string
	generatePath string
	teacherPath  string
	hints        Hints
	timeout      time.Duration
	httpClient   HTTPClient
	logger       *slog.Logger
}

type Option func(*Client)

func WithPaths(generate, teacher string) Option {
	return func(c *Client) {
		if generate != "" {
			c.generatePath = generate
		}
		if teacher != "" {
			c.teacherPath = teacher
		}
	}
}

func WithHints(h Hints) Option {
	return func(c *Client) { c.hints = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		generatePath: DefaultGeneratePath,
		teacherPath:  DefaultTeacherPath,
		timeout:      DefaultTimeout,
		httpClient:   http.DefaultClient,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL used for mode
func (c *Client) Endpoint(mode models.Mode) string {
	if mode == models.Grounded {
		return c.baseURL + c.teacherPath
	}
	return c.baseURL + c.generatePath
}

// Dispatch posts the question and waits for the answer
func (c *Client) Dispatch(ctx context.Context, mode models.Mode, query string) models.AnswerResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.Endpoint(mode)
	logger := c.logger.With("mode", mode.String(), "url", url)

	body, err := c.requestBody(mode, query)
	if err != nil {
		// Only reachable with a broken sjson path; treat like a failed send
		return transportFailure(logger, fmt.Errorf("build request body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return transportFailure(logger, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportFailure(logger, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportFailure(logger, fmt.Errorf("read response: %w", err))
	}

	logger.Debug("backend responded", "status", resp.StatusCode, "bytes", len(data), "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f := &models.Failure{
			Kind:       models.BackendError,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(data),
		}
		logger.Warn("backend returned error status", "status", resp.StatusCode, "detail", f.Detail)
		return models.Failed(f)
	}

	return parseAnswer(logger, mode, data)
}

func (c *Client) requestBody(mode models.Mode, query string) ([]byte, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "text", query)
	if err != nil {
		return nil, err
	}
	if mode != models.Grounded {
		return body, nil
	}
	if c.hints.Topic != "" {
		if body, err = sjson.SetBytes(body, "topic", c.hints.Topic); err != nil {
			return nil, err
		}
	}
	if c.hints.Level != "" {
		if body, err = sjson.SetBytes(body, "level", c.hints.Level); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func parseAnswer(logger *slog.Logger, mode models.Mode, data []byte) models.AnswerResult {
	if !gjson.ValidBytes(data) {
		return malformed(logger, errors.New("response is not JSON"))
	}

	// blank but present text is still an answer; only "" counts as missing
	text := gjson.GetBytes(data, "text")
	if text.Type != gjson.String || text.Str == "" {
		return malformed(logger, errors.New("response has no text field"))
	}

	var sources []string
	if mode == models.Grounded {
		if src := gjson.GetBytes(data, "sources"); src.IsArray() {
			sources = make([]string, 0, len(src.Array()))
			src.ForEach(func(_, v gjson.Result) bool {
				sources = append(sources, v.String())
				return true
			})
		}
	}
	return models.Success(text.Str, sources)
}

// errorDetail extracts FastAPI's "detail"; a non-JSON body is used as is
func errorDetail(data []byte) string {
	if !gjson.ValidBytes(data) {
		return strings.TrimSpace(string(data))
	}
	detail := gjson.GetBytes(data, "detail")
	switch {
	case !detail.Exists():
		return ""
	case detail.Type == gjson.String:
		return detail.Str
	default:
		return detail.Raw
	}
}

func transportFailure(logger *slog.Logger, err error) models.AnswerResult {
	logger.Warn("backend unreachable", "error", err)
	return models.Failed(&models.Failure{Kind: models.TransportFailure, Err: err})
}

func malformed(logger *slog.Logger, err error) models.AnswerResult {
	logger.Warn("unexpected backend response", "error", err)
	return models.Failed(&models.Failure{Kind: models.MalformedResponse, Err: err})
}
