package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// ErrGeneration marks a failed or unusable response from the text
// generation service, including output that cannot be parsed into a
// title and body.
var ErrGeneration = errors.New("content generation failed")

// Client communicates with a Gemini-compatible generation API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL, apiKey, model string, limiter *rate.Limiter) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
		limiter:    limiter,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Complete sends the prompt and returns the raw model text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrGeneration, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var generated generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&generated); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrGeneration, err)
	}

	if len(generated.Candidates) == 0 || len(generated.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: response contains no candidates", ErrGeneration)
	}

	var text strings.Builder
	for _, p := range generated.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	return text.String(), nil
}

// GenerateDraft completes the prompt and parses the result into a
// draft. Malformed output is retried once with a format reminder; the
// raw text of the accepted response is returned for history recording.
func (c *Client) GenerateDraft(ctx context.Context, prompt string) (*Draft, string, error) {
	raw, err := c.Complete(ctx, prompt)
	if err != nil {
		return nil, "", err
	}

	draft, parseErr := ParseDraft(raw)
	if parseErr == nil {
		return draft, raw, nil
	}

	slog.Warn("Malformed draft, regenerating once", "error", parseErr)

	retryRaw, err := c.Complete(ctx, prompt+"\n\n"+formatReminder)
	if err != nil {
		return nil, "", parseErr
	}

	draft, err = ParseDraft(retryRaw)
	if err != nil {
		return nil, "", err
	}

	return draft, retryRaw, nil
}
