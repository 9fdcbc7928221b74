package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/longkey1/aiproj/internal/aiproj"
	"github.com/longkey1/aiproj/internal/aiproj/config"
	"github.com/longkey1/aiproj/internal/aiproj/history"
	"github.com/longkey1/aiproj/internal/aiproj/threadlog"
	"github.com/longkey1/aiproj/internal/foundry"
)

// Operation names accepted by ParseOperationNames
const (
	OpChat    = "chat"
	OpAgent   = "agent"
	OpUpload  = "upload"
	OpHistory = "history"
)

// ParseOperationNames validates a list of operation names. Names may also be
// given comma-separated in a single element.
func ParseOperationNames(names []string) ([]string, error) {
	var parsed []string
	for _, item := range names {
		for _, name := range strings.Split(item, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			switch name {
			case OpChat, OpAgent, OpUpload, OpHistory:
				parsed = append(parsed, name)
			default:
				return nil, fmt.Errorf("unknown operation '%s' (available: %s, %s, %s, %s)", name, OpChat, OpAgent, OpUpload, OpHistory)
			}
		}
	}
	return parsed, nil
}

// ChatTest sends one message to the configuration's chat model
type ChatTest struct {
	Message string
	System  string // Optional system prompt
}

func (o *ChatTest) Name() string  { return OpChat }
func (o *ChatTest) Title() string { return "Testing Chat Completion" }

func (o *ChatTest) Run(ctx context.Context, cfg config.Configuration, client *foundry.Client) (string, error) {
	var out strings.Builder
	fmt.Fprintf(&out, "Using model: %s\n", cfg.ChatModel)
	fmt.Fprintf(&out, "Using endpoint: %s\n", cfg.Endpoint)

	if strings.TrimSpace(o.Message) == "" {
		return out.String(), errors.New("message is required")
	}

	var messages []foundry.ChatMessage
	if o.System != "" {
		messages = append(messages, foundry.ChatMessage{Role: string(aiproj.RoleSystem), Content: o.System})
	}
	messages = append(messages, foundry.ChatMessage{Role: string(aiproj.RoleUser), Content: o.Message})

	resp, err := client.ChatCompletion(ctx, cfg.ChatModel, messages)
	if err != nil {
		return out.String(), err
	}
	text, err := resp.Text()
	if err != nil {
		return out.String(), err
	}
	fmt.Fprintf(&out, "Response: %s", text)
	return out.String(), nil
}

// ThreadRecorder stores a note of each thread created by AgentChat.
// *threadlog.Store satisfies it.
type ThreadRecorder interface {
	Save(rec *threadlog.Record) error
}

// AgentChat posts a message to a new thread, runs the configuration's agent
// on it and prints the resulting conversation.
type AgentChat struct {
	Message  string
	Recorder ThreadRecorder // Optional
	Logger   *slog.Logger   // Optional
}

func (o *AgentChat) Name() string  { return OpAgent }
func (o *AgentChat) Title() string { return "Testing Agent Chat" }

func (o *AgentChat) Run(ctx context.Context, cfg config.Configuration, client *foundry.Client) (string, error) {
	if !cfg.HasAgent() {
		return "", Skip("No agent ID configured for %s, skipping agent chat", cfg.Name)
	}
	if strings.TrimSpace(o.Message) == "" {
		return "", errors.New("message is required")
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Using model: %s\n", cfg.ChatModel)
	fmt.Fprintf(&out, "Using endpoint: %s\n", cfg.Endpoint)

	agent, err := client.GetAgent(ctx, cfg.AgentID)
	if err != nil {
		return out.String(), err
	}

	thread, err := client.CreateThread(ctx)
	if err != nil {
		return out.String(), err
	}
	fmt.Fprintf(&out, "Created thread, ID: %s\n", thread.ID)

	rec := threadlog.NewRecord(cfg.Name, thread.ID, agent.ID)
	defer func() {
		if o.Recorder == nil {
			return
		}
		if err := o.Recorder.Save(rec); err != nil {
			logger.Warn("recording thread", "thread_id", thread.ID, "error", err)
		}
	}()

	if _, err := client.CreateMessage(ctx, thread.ID, string(aiproj.RoleUser), o.Message); err != nil {
		return out.String(), err
	}

	run, err := client.CreateAndProcessRun(ctx, thread.ID, agent.ID)
	if run != nil {
		rec.RunID = run.ID
		rec.RunStatus = string(run.Status)
	}
	if err != nil {
		return out.String(), err
	}

	switch run.Status {
	case foundry.RunCompleted:
	case foundry.RunFailed:
		if run.LastError != nil {
			return out.String(), fmt.Errorf("run failed: %w", run.LastError)
		}
		return out.String(), errors.New("run failed")
	default:
		return out.String(), fmt.Errorf("run ended with status %s", run.Status)
	}

	messages, err := history.NewReader(client, logger).Read(ctx, thread.ID)
	if err != nil {
		return out.String(), err
	}
	out.WriteString(FormatConversation(messages))
	return out.String(), nil
}

// DatasetUpload registers a local file as a dataset version
type DatasetUpload struct {
	DatasetName    string
	DatasetVersion string
	FilePath       string
}

func (o *DatasetUpload) Name() string  { return OpUpload }
func (o *DatasetUpload) Title() string { return "Uploading Dataset" }

func (o *DatasetUpload) Run(ctx context.Context, cfg config.Configuration, client *foundry.Client) (string, error) {
	if !cfg.HasConnection() {
		return "", Skip("No connection name configured for %s, skipping dataset upload", cfg.Name)
	}

	dataset, err := client.UploadFile(ctx, o.DatasetName, o.DatasetVersion, o.FilePath, cfg.ConnectionName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Dataset uploaded successfully: %s", dataset), nil
}

// HistoryFetch prints the conversation of an existing thread
type HistoryFetch struct {
	ThreadID string
	JSON     bool // Print the messages as a JSON array
}

func (o *HistoryFetch) Name() string  { return OpHistory }
func (o *HistoryFetch) Title() string { return "Fetching Conversation History" }

func (o *HistoryFetch) Run(ctx context.Context, cfg config.Configuration, client *foundry.Client) (string, error) {
	messages, err := history.NewReader(client, nil).Read(ctx, o.ThreadID)
	if err != nil {
		return "", err
	}

	if o.JSON {
		data, err := json.MarshalIndent(messages, "", "  ")
		if err != nil {
			return "", fmt.Errorf("error encoding history: %w", err)
		}
		return string(data), nil
	}

	if len(messages) == 0 {
		return fmt.Sprintf("No messages in thread %s", o.ThreadID), nil
	}
	return FormatConversation(messages), nil
}

// FormatConversation renders messages one per line as "[time] role: content"
func FormatConversation(messages []aiproj.ConversationMessage) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.CreatedAt.Format(time.RFC3339), m.Role, m.Content)
	}
	return b.String()
}
