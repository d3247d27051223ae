// Package video drives the D-ID talks API to turn feedback text into a
// short talking-head video. Generation is asynchronous: Create starts a
// task, Status reports on it, and Poll waits for a terminal state.
package video

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.d-id.com"

// Task states reported by the API. Anything else means the task is
// still in progress.
const (
	StatusDone  = "done"
	StatusError = "error"
)

var (
	// ErrGenerationFailed means the API reported a terminal error for
	// the task.
	ErrGenerationFailed = errors.New("video generation failed")
	// ErrPollExhausted means the task did not reach a terminal state
	// within the poll policy's attempt limit.
	ErrPollExhausted = errors.New("video generation timed out")
)

// Client is a D-ID talks API client.
type Client struct {
	baseURL string
	auth    string
	http    *http.Client
}

// New creates a client for the given endpoint. The API key is sent as
// a Basic authorization credential.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey)),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// TaskStatus is the state of one generation task.
type TaskStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url,omitempty"`
}

// PollPolicy bounds how long Poll waits for a task to finish.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPollPolicy waits up to two minutes.
var DefaultPollPolicy = PollPolicy{Interval: 2 * time.Second, MaxAttempts: 60}

type createRequest struct {
	SourceURL string `json:"source_url"`
	Script    script `json:"script"`
}

type script struct {
	Type     string   `json:"type"`
	Input    string   `json:"input"`
	Provider provider `json:"provider"`
}

type provider struct {
	Type    string `json:"type"`
	VoiceID string `json:"voice_id"`
}

// Create starts a generation task for the given presenter image and
// spoken script. It returns the task ID to poll.
func (c *Client) Create(ctx context.Context, imageURL, text, voiceID string) (string, error) {
	body, err := json.Marshal(createRequest{
		SourceURL: imageURL,
		Script: script{
			Type:     "text",
			Input:    text,
			Provider: provider{Type: "microsoft", VoiceID: voiceID},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/talks", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("create talk: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("create talk: unexpected status %d: %s", resp.StatusCode, readSnippet(resp.Body))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if created.ID == "" {
		return "", errors.New("create talk: response missing task id")
	}
	return created.ID, nil
}

// Status fetches the current state of a generation task.
func (c *Client) Status(ctx context.Context, taskID string) (*TaskStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/talks/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Authorization", c.auth)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("talk status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("talk status: unexpected status %d: %s", resp.StatusCode, readSnippet(resp.Body))
	}

	var st TaskStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	if st.ID == "" {
		st.ID = taskID
	}
	return &st, nil
}

// Poll waits for the task to reach a terminal state and returns the
// result URL. It respects context cancellation between attempts.
func (c *Client) Poll(ctx context.Context, taskID string, policy PollPolicy) (string, error) {
	if policy.Interval <= 0 {
		policy.Interval = DefaultPollPolicy.Interval
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultPollPolicy.MaxAttempts
	}

	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		st, err := c.Status(ctx, taskID)
		if err != nil {
			return "", err
		}
		switch st.Status {
		case StatusDone:
			if st.ResultURL == "" {
				return "", errors.New("talk finished without a result URL")
			}
			return st.ResultURL, nil
		case StatusError:
			return "", ErrGenerationFailed
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
	return "", ErrPollExhausted
}

// BuildScript turns improvement suggestions into the spoken feedback
// script.
func BuildScript(suggestions []string) string {
	var sb strings.Builder
	sb.WriteString("Hello! I've reviewed your answer and have some suggestions to help you improve. ")
	leads := []string{"First, ", "Second, ", "And finally, "}
	for i, s := range suggestions {
		if i >= len(leads) {
			break
		}
		sb.WriteString(leads[i])
		sb.WriteString(strings.TrimRight(s, ". "))
		sb.WriteString(". ")
	}
	sb.WriteString("Keep up the good work!")
	return sb.String()
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
