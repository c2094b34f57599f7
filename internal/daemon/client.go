package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmorganca/ollama/api"
)

// DefaultHost and DefaultPort locate the daemon when nothing is configured.
const (
	DefaultHost = "localhost"
	DefaultPort = 11434
)

// Client talks to the daemon over HTTP. It holds no model state; each call is
// an independent request bounded by the caller's context.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// BaseURL builds the daemon URL from host and port.
func BaseURL(host string, port int) string {
	if strings.TrimSpace(host) == "" {
		host = DefaultHost
	}
	if port <= 0 {
		port = DefaultPort
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// NewClient constructs a client for baseURL. connectTimeout bounds only the
// TCP dial; request lifetimes come from the context passed to each method.
func NewClient(baseURL string, connectTimeout time.Duration) *Client {
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: tr, Timeout: 0},
	}
}

// Addr returns the base URL this client targets.
func (c *Client) Addr() string { return c.baseURL }

// NewGenerateRequest builds the generate payload with the option keys the
// daemon understands. top_p and seed are fixed so repeated runs are comparable.
func NewGenerateRequest(model, prompt string, temperature float64, maxTokens int, stream bool) *api.GenerateRequest {
	s := stream
	return &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: &s,
		Options: map[string]interface{}{
			"temperature": temperature,
			"num_predict": maxTokens,
			"max_tokens":  maxTokens,
			"top_p":       0.9,
			"seed":        42,
		},
	}
}

// Ping checks the daemon answers its tags endpoint with a 2xx.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return nil
}

// Tags lists the models installed in the daemon.
func (c *Client) Tags(ctx context.Context) (api.ListResponse, error) {
	var out api.ListResponse
	resp, err := c.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, ""); err != nil {
		return out, err
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, decodeError{what: "tags", err: err}
	}
	return out, nil
}

// Generate issues a non-streaming generate call and returns the single response object.
func (c *Client) Generate(ctx context.Context, req *api.GenerateRequest) (api.GenerateResponse, error) {
	var out api.GenerateResponse
	off := false
	req.Stream = &off
	resp, err := c.do(ctx, http.MethodPost, "/api/generate", req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, req.Model); err != nil {
		return out, err
	}
	var line streamLine
	if err := json.NewDecoder(resp.Body).Decode(&line); err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		return out, decodeError{what: "generate response", err: err}
	}
	if line.Error != "" {
		return out, inBandError(req.Model, line.Error)
	}
	return line.GenerateResponse, nil
}

// streamLine is one NDJSON line; the daemon reports mid-stream failures in-band.
type streamLine struct {
	api.GenerateResponse
	Error string `json:"error,omitempty"`
}

// GenerateStream issues a streaming generate call and invokes fn for every
// decoded line in arrival order. It returns after the line carrying done:true.
// A stream that ends without that marker is a decode failure. ctx is checked
// between lines so cancellation stops the loop even on a slow stream.
func (c *Client) GenerateStream(ctx context.Context, req *api.GenerateRequest, fn func(api.GenerateResponse) error) error {
	on := true
	req.Stream = &on
	resp, err := c.do(ctx, http.MethodPost, "/api/generate", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, req.Model); err != nil {
		return err
	}
	r := bufio.NewReader(resp.Body)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, readErr := r.ReadBytes('\n')
		if b := bytes.TrimSpace(raw); len(b) > 0 {
			var line streamLine
			if err := json.Unmarshal(b, &line); err != nil {
				return decodeError{what: "stream line", err: err}
			}
			if line.Error != "" {
				return inBandError(req.Model, line.Error)
			}
			if err := fn(line.GenerateResponse); err != nil {
				return err
			}
			if line.Done {
				return nil
			}
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(readErr, io.EOF) {
				return decodeError{what: "stream", err: io.ErrUnexpectedEOF}
			}
			if isConnectivity(readErr) {
				return ErrUnavailable(c.baseURL, readErr)
			}
			return decodeError{what: "stream", err: readErr}
		}
	}
}

// Pull downloads a model, reporting progress lines to fn (which may be nil).
func (c *Client) Pull(ctx context.Context, name string, fn func(api.ProgressResponse)) error {
	on := true
	resp, err := c.do(ctx, http.MethodPost, "/api/pull", &api.PullRequest{Name: name, Stream: &on})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, name); err != nil {
		return err
	}
	dec := json.NewDecoder(resp.Body)
	for {
		var p struct {
			api.ProgressResponse
			Error string `json:"error,omitempty"`
		}
		if err := dec.Decode(&p); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return decodeError{what: "pull progress", err: err}
		}
		if p.Error != "" {
			return inBandError(name, p.Error)
		}
		if fn != nil {
			fn(p.ProgressResponse)
		}
	}
}

// Delete removes a model from the daemon.
func (c *Client) Delete(ctx context.Context, name string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/delete", &api.DeleteRequest{Name: name})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp, name)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/x-ndjson, application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isConnectivity(err) {
			return nil, ErrUnavailable(c.baseURL, err)
		}
		return nil, err
	}
	return resp, nil
}

// checkStatus turns a non-2xx answer into a typed error. Only the daemon's
// model-not-found wording maps to ErrModelNotFound; a bare 404 does not.
// model may be empty.
func checkStatus(resp *http.Response, model string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(b))
	var env struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &env) == nil && env.Error != "" {
		msg = env.Error
	}
	if model != "" && mentionsModelNotFound(msg) {
		return ErrModelNotFound(model, msg)
	}
	return &StatusError{Code: resp.StatusCode, Status: resp.Status, Message: msg}
}

func inBandError(model, msg string) error {
	if mentionsModelNotFound(msg) {
		return ErrModelNotFound(model, msg)
	}
	return &StatusError{Code: http.StatusOK, Status: "in-stream error", Message: msg}
}
