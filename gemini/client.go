// ABOUTME: HTTP client for the Gemini generative language API with one-shot
// ABOUTME: and SSE streaming content generation built on the stream engine.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/2389-research/aigo/stream"
)

// DefaultModel is used when NewClient is given an empty model name.
const DefaultModel = "gemini-2.0-flash"

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client talks to the Gemini API. Construct with NewClient; the zero value
// is not usable.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates a Gemini API client against the public endpoint.
func NewClient(apiKey, model string) *Client {
	return NewClientWithBaseURL(apiKey, model, defaultBaseURL)
}

// NewClientWithBaseURL creates a Gemini API client against a custom endpoint,
// for proxies and API-compatible servers.
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		// No client-level timeout: a stream stays open for as long as
		// the model keeps generating. Deadlines come from the caller's
		// context and the engine's idle watchdog.
		http: &http.Client{},
		log:  zap.NewNop(),
	}
}

// Model returns a copy of the client targeting a different model. An empty
// name keeps the current one.
func (c *Client) Model(model string) *Client {
	clone := *c
	if model != "" {
		clone.model = model
	}
	return &clone
}

// SetLogger attaches a logger to the client. The default discards all output.
func (c *Client) SetLogger(logger *zap.Logger) {
	if logger != nil {
		c.log = logger
	}
}

// GenerateContent sends a single text prompt and returns the complete
// response.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (*GenerateContentResponse, error) {
	return c.GenerateContentWithRequest(ctx, NewTextRequest(prompt))
}

// GenerateContentWithConfig is GenerateContent with sampling and output
// limits applied.
func (c *Client) GenerateContentWithConfig(ctx context.Context, prompt string, cfg *GenerationConfig) (*GenerateContentResponse, error) {
	req := NewTextRequest(prompt)
	req.GenerationConfig = cfg
	return c.GenerateContentWithRequest(ctx, req)
}

// GenerateContentWithRequest sends a fully specified request and returns the
// complete response.
func (c *Client) GenerateContentWithRequest(ctx context.Context, req *GenerateContentRequest) (*GenerateContentResponse, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	resp, err := c.post(ctx, url, "generate", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, "generate"); err != nil {
		return nil, err
	}
	var out GenerateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &stream.Error{Kind: stream.ErrDecode, Op: "generate", Err: err}
	}
	c.log.Debug("content generated",
		zap.String("model", c.model),
		zap.Int("candidates", len(out.Candidates)))
	return &out, nil
}

// StreamContent sends a single text prompt and streams the response
// incrementally. The returned stream must be closed by the caller.
func (c *Client) StreamContent(ctx context.Context, prompt string) (*stream.Stream[*GenerateContentResponse], error) {
	return c.StreamContentWithRequest(ctx, NewTextRequest(prompt))
}

// StreamContentWithRequest sends a fully specified request and streams the
// response incrementally. Chunks arrive as SSE records; the stream ends when
// a candidate reports a finish reason or the connection closes.
func (c *Client) StreamContentWithRequest(ctx context.Context, req *GenerateContentRequest) (*stream.Stream[*GenerateContentResponse], error) {
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", c.baseURL, c.model)
	resp, err := c.post(ctx, url, "stream", req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "stream"); err != nil {
		resp.Body.Close()
		return nil, err
	}
	logger := c.log.With(
		zap.String("stream_id", uuid.NewString()),
		zap.String("model", c.model),
	)
	logger.Debug("content stream opened")
	return stream.Run(ctx, resp.Body, contentCodec{}, stream.Options{
		Prefix:   "data:",
		Sentinel: "[DONE]",
		Logger:   logger,
	}), nil
}

func (c *Client) post(ctx context.Context, url, op string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &stream.Error{Kind: stream.ErrTransport, Op: op, Err: err}
	}
	return resp, nil
}

// checkStatus turns a non-success response into a transport error, decoding
// the API's error envelope when one is present. It does not close the body.
func checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return &stream.Error{Kind: stream.ErrTransport, Op: op, Err: envelope.Error}
	}
	return &stream.Error{
		Kind: stream.ErrTransport,
		Op:   op,
		Raw:  strings.TrimSpace(string(body)),
		Err:  fmt.Errorf("unexpected status %s", resp.Status),
	}
}

// contentCodec decodes streamed generateContent records. A record is
// terminal when its first candidate reports a finish reason.
type contentCodec struct{}

var _ stream.Codec[*GenerateContentResponse] = contentCodec{}

func (contentCodec) Decode(data []byte) (*GenerateContentResponse, error) {
	var r GenerateContentResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (contentCodec) Terminal(r *GenerateContentResponse) (string, bool) {
	if len(r.Candidates) > 0 && r.Candidates[0].FinishReason != "" {
		return r.Candidates[0].FinishReason, true
	}
	return "", false
}
