// Package generation holds the wire contract of the text-generation service
// and an HTTP client for it.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"shannon/internal/logging"
)

// Path is the generation route.
const Path = "/generate"

// Request is the body of POST /generate.
type Request struct {
	Strength     int    `json:"strength"`
	NumSentences int    `json:"num_sentences"`
	FileContent  string `json:"fileContent"`
}

// Response is the body of a successful POST /generate.
// Its length is whatever the service chose; NumSentences is only a hint.
type Response struct {
	Sentences []string `json:"sentences"`
}

// Generator produces sentences for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("generation service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("generation service returned %d: %s", e.StatusCode, e.Body)
}

// ErrMalformedResponse is returned when a 2xx body is not a valid Response.
var ErrMalformedResponse = errors.New("malformed generation response")

// Client talks to a generation service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient swaps the underlying http.Client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// Endpoint returns the full generation URL.
func (c *Client) Endpoint() string {
	return c.baseURL + Path
}

// Generate sends a single request. Transport errors, non-2xx statuses and
// undecodable bodies are all returned as errors.
func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to build request: %w", err)
	}
	reqID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", reqID)

	log := logging.Get(logging.CategoryAPI).With("req", reqID)
	log.Info("POST %s strength=%d num_sentences=%d content=%dB", c.Endpoint(), req.Strength, req.NumSentences, len(req.FileContent))
	start := time.Now()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Error("request failed: %v", err)
		return Response{}, fmt.Errorf("failed to connect to generation service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error("status %d after %s", resp.StatusCode, time.Since(start))
		return Response{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var out struct {
		Sentences *[]string `json:"sentences"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out.Sentences == nil {
		return Response{}, fmt.Errorf("%w: missing sentences", ErrMalformedResponse)
	}

	log.Info("received %d sentences in %s", len(*out.Sentences), time.Since(start))
	return Response{Sentences: *out.Sentences}, nil
}
