package transcriber

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
	"time"

	"golang.org/x/time/rate"
)

// ErrTimeout marks a transcription job that did not complete within the
// configured overall deadline.
var ErrTimeout = errors.New("transcription deadline exceeded")

// ErrService marks a hard failure reported by the transcription service.
var ErrService = errors.New("transcription service failure")

// PollPolicy bounds the poll loop: the interval starts at Initial and
// grows by Multiplier up to Max; the whole job must finish within
// Deadline.
type PollPolicy struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Deadline   time.Duration
}

// Client communicates with an AssemblyAI-compatible transcription API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	poll       PollPolicy
}

func NewClient(baseURL, apiKey string, limiter *rate.Limiter, poll PollPolicy) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		limiter:    limiter,
		poll:       poll,
	}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type submitRequest struct {
	AudioURL          string `json:"audio_url"`
	LanguageDetection bool   `json:"language_detection"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe uploads the audio, submits a transcription job, and polls
// until completion. It never returns an empty transcript: an empty
// completed job is reported as a service failure.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	audioURL, err := c.upload(ctx, audio)
	if err != nil {
		return "", err
	}

	jobID, err := c.submit(ctx, audioURL)
	if err != nil {
		return "", err
	}

	slog.Debug("Transcription job submitted", "job_id", jobID)

	return c.pollTranscript(ctx, jobID)
}

func (c *Client) upload(ctx context.Context, audio io.Reader) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/upload", audio)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var uploaded uploadResponse
	if err := c.do(req, &uploaded); err != nil {
		return "", err
	}

	if uploaded.UploadURL == "" {
		return "", fmt.Errorf("%w: upload returned no URL", ErrService)
	}

	return uploaded.UploadURL, nil
}

func (c *Client) submit(ctx context.Context, audioURL string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := json.Marshal(submitRequest{AudioURL: audioURL, LanguageDetection: true})
	if err != nil {
		return "", fmt.Errorf("failed to marshal submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create submit request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var job transcriptResponse
	if err := c.do(req, &job); err != nil {
		return "", err
	}

	if job.ID == "" {
		return "", fmt.Errorf("%w: submit returned no job id", ErrService)
	}

	return job.ID, nil
}

// pollTranscript polls the job until it completes or fails, with the
// interval growing per the poll policy. If the enclosing context is
// cancelled, no further calls are made for the job.
func (c *Client) pollTranscript(ctx context.Context, jobID string) (string, error) {
	deadline := time.Now().Add(c.poll.Deadline)
	interval := c.poll.Initial

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		job, err := c.getTranscript(ctx, jobID)
		if err != nil {
			return "", err
		}

		switch job.Status {
		case "completed":
			if strings.TrimSpace(job.Text) == "" {
				return "", fmt.Errorf("%w: job %s completed with empty transcript", ErrService, jobID)
			}
			return job.Text, nil
		case "error":
			return "", fmt.Errorf("%w: %s", ErrService, job.Error)
		}

		if time.Now().Add(interval).After(deadline) {
			return "", fmt.Errorf("%w: job %s still %s after %s", ErrTimeout, jobID, job.Status, c.poll.Deadline)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}

		interval = time.Duration(float64(interval) * c.poll.Multiplier)
		if interval > c.poll.Max {
			interval = c.poll.Max
		}
	}
}

func (c *Client) getTranscript(ctx context.Context, jobID string) (*transcriptResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	var job transcriptResponse
	if err := c.do(req, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return req.Context().Err()
		}
		return fmt.Errorf("%w: %v", ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: HTTP %d: %s", ErrService, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrService, err)
	}

	return nil
}
