// Package ai calls the external generation service that produces bot replies
// for conversation turns. The endpoint receives a bounded trailing window of
// the conversation plus the latest user message and returns a reply.
//
// The call is strictly best-effort from the caller's perspective: transport
// failures, non-2xx responses, and unparseable bodies are all reported as
// errors here, and the conversation service substitutes a fixed fallback
// reply instead of surfacing them.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TurnPayload is one context-window entry sent to the generation endpoint.
type TurnPayload struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Generator produces a bot reply for the latest user message given a trailing
// window of prior turns. Implementations must honor the context for
// cancellation and deadlines.
type Generator interface {
	Generate(ctx context.Context, window []TurnPayload, latest string) (string, error)
}

// HTTPGenerator calls a JSON-over-HTTP generation endpoint with the shape
// {"messages": [...], "message": "..."} and accepts replies under any of the
// keys "reply", "answer", or "text".
type HTTPGenerator struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPGenerator builds a generator for the given endpoint URL with a
// bounded per-call timeout.
func NewHTTPGenerator(endpoint string, timeout time.Duration) *HTTPGenerator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGenerator{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Messages []TurnPayload `json:"messages"`
	Message  string        `json:"message"`
}

type generateResponse struct {
	Reply  string `json:"reply"`
	Answer string `json:"answer"`
	Text   string `json:"text"`
}

// Generate implements Generator.
func (g *HTTPGenerator) Generate(ctx context.Context, window []TurnPayload, latest string) (string, error) {
	if g.endpoint == "" {
		return "", fmt.Errorf("generation endpoint not configured")
	}
	if window == nil {
		window = []TurnPayload{}
	}
	body, err := json.Marshal(generateRequest{Messages: window, Message: latest})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("generation service returned %s", resp.Status)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("generation decode: %w", err)
	}
	for _, text := range []string{out.Reply, out.Answer, out.Text} {
		if s := strings.TrimSpace(text); s != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("empty reply from generation service")
}
