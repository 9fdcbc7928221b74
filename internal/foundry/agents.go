package foundry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// SortOrder is the order of a message listing
type SortOrder string

const (
	OrderAscending  SortOrder = "asc"
	OrderDescending SortOrder = "desc"
)

// RunStatus is the lifecycle state of an agent run
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCancelling     RunStatus = "cancelling"
	RunCancelled      RunStatus = "cancelled"
	RunFailed         RunStatus = "failed"
	RunCompleted      RunStatus = "completed"
	RunExpired        RunStatus = "expired"
)

// Terminal reports whether the run can no longer change state
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCancelled, RunFailed, RunCompleted, RunExpired:
		return true
	}
	return false
}

// Agent is a provider-hosted assistant
type Agent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	Instructions string `json:"instructions"`
	CreatedAt    int64  `json:"created_at"`
}

// Thread is a provider-side conversation
type Thread struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
}

// TextContent is the payload of a text content segment
type TextContent struct {
	Value string `json:"value"`
}

// MessageContent is one content segment of a thread message
type MessageContent struct {
	Type string       `json:"type"` // "text", "image_file", ...
	Text *TextContent `json:"text,omitempty"`
}

// ThreadMessage is a message as returned by the agents API
type ThreadMessage struct {
	ID          string           `json:"id"`
	ThreadID    string           `json:"thread_id"`
	Role        string           `json:"role"`
	Content     []MessageContent `json:"content"`
	CreatedAt   int64            `json:"created_at"` // Unix seconds
	AssistantID string           `json:"assistant_id,omitempty"`
	RunID       string           `json:"run_id,omitempty"`
}

// TextSegments returns the values of the message's text segments in order
func (m ThreadMessage) TextSegments() []string {
	var texts []string
	for _, content := range m.Content {
		if content.Type == "text" && content.Text != nil {
			texts = append(texts, content.Text.Value)
		}
	}
	return texts
}

// Created returns the creation time in UTC
func (m ThreadMessage) Created() time.Time {
	return time.Unix(m.CreatedAt, 0).UTC()
}

// RunError describes why a run failed
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RunError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Run is one execution of an agent against a thread
type Run struct {
	ID          string    `json:"id"`
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id"`
	Status      RunStatus `json:"status"`
	LastError   *RunError `json:"last_error,omitempty"`
	CreatedAt   int64     `json:"created_at"`
}

// ListOptions controls a message listing
type ListOptions struct {
	Order SortOrder
	After string // Cursor: ID of the last message of the previous page
	Limit int    // 0 = service default
}

// MessagePage is one page of a message listing
type MessagePage struct {
	Data    []ThreadMessage `json:"data"`
	FirstID string          `json:"first_id"`
	LastID  string          `json:"last_id"`
	HasMore bool            `json:"has_more"`
}

// GetAgent fetches an agent by ID
func (c *Client) GetAgent(ctx context.Context, agentID string) (*Agent, error) {
	if agentID == "" {
		return nil, errors.New("agent ID is required")
	}
	var agent Agent
	if err := c.agentsCall(ctx, http.MethodGet, nil, &agent, "assistants", agentID); err != nil {
		return nil, fmt.Errorf("getting agent: %w", err)
	}
	return &agent, nil
}

// CreateThread creates an empty thread
func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	var thread Thread
	if err := c.agentsCall(ctx, http.MethodPost, map[string]any{}, &thread, "threads"); err != nil {
		return nil, fmt.Errorf("creating thread: %w", err)
	}
	return &thread, nil
}

// CreateMessage appends a message to a thread
func (c *Client) CreateMessage(ctx context.Context, threadID, role, content string) (*ThreadMessage, error) {
	body := map[string]string{"role": role, "content": content}
	var msg ThreadMessage
	if err := c.agentsCall(ctx, http.MethodPost, body, &msg, "threads", threadID, "messages"); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	return &msg, nil
}

// CreateRun starts an agent run on a thread
func (c *Client) CreateRun(ctx context.Context, threadID, agentID string) (*Run, error) {
	body := map[string]string{"assistant_id": agentID}
	var run Run
	if err := c.agentsCall(ctx, http.MethodPost, body, &run, "threads", threadID, "runs"); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	return &run, nil
}

// GetRun fetches the current state of a run
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var run Run
	if err := c.agentsCall(ctx, http.MethodGet, nil, &run, "threads", threadID, "runs", runID); err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return &run, nil
}

// CancelRun requests cancellation of a run
func (c *Client) CancelRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var run Run
	if err := c.agentsCall(ctx, http.MethodPost, map[string]any{}, &run, "threads", threadID, "runs", runID, "cancel"); err != nil {
		return nil, fmt.Errorf("cancelling run: %w", err)
	}
	return &run, nil
}

// CreateAndProcessRun starts a run and polls it until it reaches a terminal
// status. Runs that ask for tool outputs are cancelled, since no tools are
// registered on this side.
func (c *Client) CreateAndProcessRun(ctx context.Context, threadID, agentID string) (*Run, error) {
	run, err := c.CreateRun(ctx, threadID, agentID)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if c.pollInterval > 0 {
		limit = rate.Every(c.pollInterval)
	}
	limiter := rate.NewLimiter(limit, 1)

	for !run.Status.Terminal() {
		if err := limiter.Wait(ctx); err != nil {
			return run, fmt.Errorf("waiting for run %s: %w", run.ID, err)
		}

		if run.Status == RunRequiresAction {
			c.logger.Warn("run requires tool outputs, cancelling", "thread_id", threadID, "run_id", run.ID)
			if cancelled, err := c.CancelRun(ctx, threadID, run.ID); err == nil {
				run = cancelled
			}
			return run, fmt.Errorf("run %s requires tool outputs, which are not supported", run.ID)
		}

		run, err = c.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("run status", "thread_id", threadID, "run_id", run.ID, "status", run.Status)
	}
	return run, nil
}

// ListMessages returns one page of a thread's messages
func (c *Client) ListMessages(ctx context.Context, threadID string, opts ListOptions) (*MessagePage, error) {
	req, err := c.newRequest(ctx, ProjectScope)
	if err != nil {
		return nil, err
	}
	req.SetQueryParam("api-version", AgentsAPIVersion)
	if opts.Order != "" {
		req.SetQueryParam("order", string(opts.Order))
	}
	if opts.After != "" {
		req.SetQueryParam("after", opts.After)
	}
	if opts.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(opts.Limit))
	}

	var page MessagePage
	if err := c.do(req, http.MethodGet, c.projectURL("threads", threadID, "messages"), &page); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return &page, nil
}

// agentsCall performs a JSON call against an agents route
func (c *Client) agentsCall(ctx context.Context, method string, body, out any, segments ...string) error {
	req, err := c.newRequest(ctx, ProjectScope)
	if err != nil {
		return err
	}
	req.SetQueryParam("api-version", AgentsAPIVersion)
	if body != nil {
		req.SetBody(body)
	}
	return c.do(req, method, c.projectURL(segments...), out)
}
