package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/longkey1/aiproj/internal/aiproj"
	"github.com/longkey1/aiproj/internal/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLister serves pre-built pages keyed by the "after" cursor
type fakeLister struct {
	pages map[string]*foundry.MessagePage
	err   error
	calls []foundry.ListOptions
}

func (f *fakeLister) ListMessages(_ context.Context, _ string, opts foundry.ListOptions) (*foundry.MessagePage, error) {
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return nil, f.err
	}
	page, ok := f.pages[opts.After]
	if !ok {
		return &foundry.MessagePage{}, nil
	}
	return page, nil
}

func textMessage(id, role string, createdAt int64, texts ...string) foundry.ThreadMessage {
	m := foundry.ThreadMessage{ID: id, Role: role, CreatedAt: createdAt}
	for _, text := range texts {
		m.Content = append(m.Content, foundry.MessageContent{Type: "text", Text: &foundry.TextContent{Value: text}})
	}
	return m
}

func TestRead_OrdersAndNormalizes(t *testing.T) {
	imageOnly := foundry.ThreadMessage{
		ID:        "msg_img",
		Role:      "assistant",
		CreatedAt: 15,
		Content:   []foundry.MessageContent{{Type: "image_file"}},
	}
	lister := &fakeLister{pages: map[string]*foundry.MessagePage{
		"": {
			Data: []foundry.ThreadMessage{
				textMessage("msg_3", "assistant", 30, "draft", "final answer"),
				textMessage("msg_1", "user", 10, "question"),
				imageOnly,
			},
		},
	}}

	got, err := NewReader(lister, nil).Read(context.Background(), "thread_1")
	require.NoError(t, err)

	want := []aiproj.ConversationMessage{
		{Role: aiproj.RoleUser, Content: "question", CreatedAt: time.Unix(10, 0).UTC()},
		{Role: aiproj.RoleAssistant, Content: "final answer", CreatedAt: time.Unix(30, 0).UTC()},
	}
	assert.Equal(t, want, got)

	require.Len(t, lister.calls, 1)
	assert.Equal(t, foundry.OrderAscending, lister.calls[0].Order)
}

func TestRead_FollowsPages(t *testing.T) {
	lister := &fakeLister{pages: map[string]*foundry.MessagePage{
		"": {
			Data:    []foundry.ThreadMessage{textMessage("msg_1", "user", 1, "a")},
			LastID:  "msg_1",
			HasMore: true,
		},
		"msg_1": {
			Data:    []foundry.ThreadMessage{textMessage("msg_2", "assistant", 2, "b")},
			LastID:  "msg_2",
			HasMore: true,
		},
		"msg_2": {
			Data:   []foundry.ThreadMessage{textMessage("msg_3", "user", 3, "c")},
			LastID: "msg_3",
		},
	}}

	got, err := NewReader(lister, nil).Read(context.Background(), "thread_1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Content)
	assert.Equal(t, "b", got[1].Content)
	assert.Equal(t, "c", got[2].Content)
	assert.Len(t, lister.calls, 3)
}

func TestRead_StopsOnRepeatedCursor(t *testing.T) {
	lister := &fakeLister{pages: map[string]*foundry.MessagePage{
		"": {
			Data:    []foundry.ThreadMessage{textMessage("msg_1", "user", 1, "a")},
			LastID:  "msg_1",
			HasMore: true,
		},
		"msg_1": {
			LastID:  "msg_1",
			HasMore: true,
		},
	}}

	got, err := NewReader(lister, nil).Read(context.Background(), "thread_1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Len(t, lister.calls, 2)
}

func TestRead_EmptyThread(t *testing.T) {
	got, err := NewReader(&fakeLister{}, nil).Read(context.Background(), "thread_1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRead_WrapsListerError(t *testing.T) {
	base := errors.New("401 unauthorized")
	_, err := NewReader(&fakeLister{err: base}, nil).Read(context.Background(), "thread_1")

	var retrievalErr *aiproj.RetrievalError
	require.True(t, errors.As(err, &retrievalErr))
	assert.Equal(t, "thread_1", retrievalErr.ThreadID)
	assert.ErrorIs(t, err, base)
}

func TestRead_RequiresThreadID(t *testing.T) {
	lister := &fakeLister{}
	_, err := NewReader(lister, nil).Read(context.Background(), "")

	var retrievalErr *aiproj.RetrievalError
	assert.True(t, errors.As(err, &retrievalErr))
	assert.Empty(t, lister.calls)
}
