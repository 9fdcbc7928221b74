// Package history reads a thread's messages and normalizes them into an
// ordered conversation.
package history

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/longkey1/aiproj/internal/aiproj"
	"github.com/longkey1/aiproj/internal/foundry"
)

// DefaultPageSize is the number of messages requested per page
const DefaultPageSize = 100

// MessageLister lists one page of a thread's messages.
// *foundry.Client satisfies it.
type MessageLister interface {
	ListMessages(ctx context.Context, threadID string, opts foundry.ListOptions) (*foundry.MessagePage, error)
}

// Reader retrieves normalized conversation history
type Reader struct {
	lister   MessageLister
	pageSize int
	logger   *slog.Logger
}

// NewReader creates a Reader over lister
func NewReader(lister MessageLister, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reader{lister: lister, pageSize: DefaultPageSize, logger: logger}
}

// Read returns every text message of the thread, oldest first. Messages
// without a text segment are skipped; for the others only the last text
// segment is kept. Any listing failure is returned as *aiproj.RetrievalError.
func (r *Reader) Read(ctx context.Context, threadID string) ([]aiproj.ConversationMessage, error) {
	if threadID == "" {
		return nil, &aiproj.RetrievalError{ThreadID: threadID, Err: errors.New("thread ID is required")}
	}

	messages := []aiproj.ConversationMessage{}
	opts := foundry.ListOptions{Order: foundry.OrderAscending, Limit: r.pageSize}
	for {
		page, err := r.lister.ListMessages(ctx, threadID, opts)
		if err != nil {
			return nil, &aiproj.RetrievalError{ThreadID: threadID, Err: err}
		}

		for _, m := range page.Data {
			if msg, ok := r.normalize(m); ok {
				messages = append(messages, msg)
			}
		}

		if !page.HasMore || page.LastID == "" || page.LastID == opts.After {
			break
		}
		opts.After = page.LastID
	}

	// The service is asked for ascending order; sorting keeps the guarantee
	// when pages overlap or the order hint is ignored.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})

	return messages, nil
}

func (r *Reader) normalize(m foundry.ThreadMessage) (aiproj.ConversationMessage, bool) {
	texts := m.TextSegments()
	if len(texts) == 0 {
		r.logger.Debug("skipping message without text", "message_id", m.ID)
		return aiproj.ConversationMessage{}, false
	}

	role, known := aiproj.ParseRole(m.Role)
	if !known {
		r.logger.Debug("unrecognized message role", "message_id", m.ID, "role", m.Role)
	}

	return aiproj.ConversationMessage{
		Role:      role,
		Content:   texts[len(texts)-1],
		CreatedAt: m.Created(),
	}, true
}
