package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"smtptester/internal/api/handler/response"
	"smtptester/pkg"
	"strings"
	"sync"
	"time"
)

const (
	UnreachableMessage = "Could not reach backend"
	unknownError       = "Unknown error"
	testSmtpPath       = "/api/test-smtp"
)

var (
	ErrSubmissionPending  = errors.New("a submission is already pending")
	ErrBackendUnreachable = errors.New(UnreachableMessage)
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseSuccess
	PhaseFailure
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseSuccess:
		return "success"
	case PhaseFailure:
		return "failure"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Status is what the form displays.
type Status struct {
	Phase   Phase
	Message string
	Details *pkg.ValidationError
}

// Client submits forms to the API and tracks the display state. Only one
// submission may be pending at a time.
type Client struct {
	baseURL string
	http    *http.Client

	mu     sync.Mutex
	status Status
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) setStatus(s Status) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
	return s
}

// Submit sends form and returns the resulting status. A server-side failure
// is a PhaseFailure status with a nil error; an error is returned only when
// the backend could not be reached or a submission is already pending.
func (c *Client) Submit(ctx context.Context, form Form) (Status, error) {
	c.mu.Lock()
	if c.status.Phase == PhasePending {
		c.mu.Unlock()
		return Status{Phase: PhasePending}, ErrSubmissionPending
	}
	c.status = Status{Phase: PhasePending}
	c.mu.Unlock()

	result, err := c.post(ctx, form)
	if err != nil {
		c.setStatus(Status{Phase: PhaseIdle, Message: UnreachableMessage})
		return c.Status(), fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}

	if result.Success {
		return c.setStatus(Status{Phase: PhaseSuccess, Message: result.Result}), nil
	}
	message := result.Error
	if message == "" {
		message = unknownError
	}
	return c.setStatus(Status{Phase: PhaseFailure, Message: message, Details: result.Details}), nil
}

func (c *Client) post(ctx context.Context, form Form) (response.TestResult, error) {
	var result response.TestResult

	body, err := json.Marshal(form.Payload())
	if err != nil {
		return result, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+testSmtpPath, bytes.NewReader(body))
	if err != nil {
		return result, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return result, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err)
	}
	return result, nil
}
