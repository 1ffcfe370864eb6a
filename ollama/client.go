// ABOUTME: HTTP client for a local or proxied Ollama server with one-shot and
// ABOUTME: NDJSON streaming completion built on the stream engine.
package ollama

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

// DefaultBaseURL is the local Ollama daemon.
const DefaultBaseURL = "http://localhost:11434"

// Client talks to an Ollama server. Construct with NewClient; the zero value
// is not usable.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates a client for an unauthenticated Ollama server. An empty
// baseURL targets the local daemon.
func NewClient(baseURL string) *Client {
	return NewClientWithAPIKey(baseURL, "")
}

// NewClientWithAPIKey creates a client that sends a bearer token, for Ollama
// behind an authenticating proxy.
func NewClientWithAPIKey(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		// No client-level timeout: a stream stays open for as long as
		// the model keeps generating. Deadlines come from the caller's
		// context and the engine's idle watchdog.
		http: &http.Client{},
		log:  zap.NewNop(),
	}
}

// SetLogger attaches a logger to the client. The default discards all output.
func (c *Client) SetLogger(logger *zap.Logger) {
	if logger != nil {
		c.log = logger
	}
}

// Active reports whether the server answers at its root endpoint. Transport
// failures and non-success statuses both count as inactive.
func (c *Client) Active(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return false
	}
	c.auth(req)
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("liveness probe failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Generate runs a completion to the end and returns the merged result. The
// request is sent with streaming off; a server that streams anyway is
// tolerated by concatenating the incremental response deltas onto the final
// record.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	r := *req
	r.Stream = false
	resp, err := c.post(ctx, c.baseURL+"/api/generate", "generate", &r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, "generate"); err != nil {
		return nil, err
	}
	records, err := stream.Collect(resp.Body, completionCodec{}, stream.Options{})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &stream.Error{Kind: stream.ErrDecode, Op: "generate", Err: fmt.Errorf("empty response body")}
	}
	final := records[len(records)-1]
	if len(records) > 1 {
		var text strings.Builder
		for _, rec := range records {
			text.WriteString(rec.Response)
		}
		final.Response = text.String()
	}
	c.log.Debug("completion generated",
		zap.String("model", final.Model),
		zap.Int("records", len(records)))
	return final, nil
}

// GenerateStream runs a completion and streams records as they arrive. The
// stream ends when a record reports done; the returned stream must be closed
// by the caller.
func (c *Client) GenerateStream(ctx context.Context, req *GenerateRequest) (*stream.Stream[*GenerateResponse], error) {
	r := *req
	r.Stream = true
	resp, err := c.post(ctx, c.baseURL+"/api/generate", "stream", &r)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "stream"); err != nil {
		resp.Body.Close()
		return nil, err
	}
	logger := c.log.With(
		zap.String("stream_id", uuid.NewString()),
		zap.String("model", r.Model),
	)
	logger.Debug("completion stream opened")
	return stream.Run(ctx, resp.Body, completionCodec{}, stream.Options{Logger: logger}), nil
}

// ListModels returns the models available on the server.
func (c *Client) ListModels(ctx context.Context) (*ListModelsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.auth(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &stream.Error{Kind: stream.ErrTransport, Op: "models", Err: err}
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, "models"); err != nil {
		return nil, err
	}
	var out ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &stream.Error{Kind: stream.ErrDecode, Op: "models", Err: err}
	}
	return &out, nil
}

// ShowModel returns the modelfile, parameters, and details for one model.
func (c *Client) ShowModel(ctx context.Context, model string) (*ShowModelResponse, error) {
	resp, err := c.post(ctx, c.baseURL+"/api/show", "show", &ShowModelRequest{Model: model})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, "show"); err != nil {
		return nil, err
	}
	var out ShowModelResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &stream.Error{Kind: stream.ErrDecode, Op: "show", Err: err}
	}
	return &out, nil
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
	c.auth(httpReq)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &stream.Error{Kind: stream.ErrTransport, Op: op, Err: err}
	}
	return resp, nil
}

// auth adds the bearer token when one is configured.
func (c *Client) auth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// checkStatus turns a non-success response into a transport error, decoding
// the server's error envelope when one is present. It does not close the body.
func checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return &stream.Error{
			Kind: stream.ErrTransport,
			Op:   op,
			Err:  fmt.Errorf("ollama: %s", envelope.Error),
		}
	}
	return &stream.Error{
		Kind: stream.ErrTransport,
		Op:   op,
		Raw:  strings.TrimSpace(string(body)),
		Err:  fmt.Errorf("unexpected status %s", resp.Status),
	}
}

// completionCodec decodes /api/generate NDJSON records. A record is terminal
// when it reports done, with done_reason as the completion reason.
type completionCodec struct{}

var _ stream.Codec[*GenerateResponse] = completionCodec{}

func (completionCodec) Decode(data []byte) (*GenerateResponse, error) {
	var r GenerateResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (completionCodec) Terminal(r *GenerateResponse) (string, bool) {
	if r.Done {
		return r.DoneReason, true
	}
	return "", false
}
