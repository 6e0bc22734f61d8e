package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/ragchat-be/types"
)

type chatFixture struct {
	conversations *memConversations
	messages      *memMessages
	kbs           *memKbs
	index         *memIndex
	embedder      *fakeEmbedder
	chat          *ChatService
	user          *types.User
}

func newChatFixture(ai types.AIService, withRetriever bool) *chatFixture {
	f := &chatFixture{
		conversations: newMemConversations(),
		messages:      newMemMessages(),
		kbs:           newMemKbs(),
		index:         newMemIndex(),
		embedder:      &fakeEmbedder{},
		user:          &types.User{ID: "user-1", Role: types.RoleUser},
	}
	var retriever *RetrieverService
	if withRetriever {
		retriever = NewRetrieverService(f.embedder, f.index)
	}
	f.chat = NewChatService(f.conversations, f.messages, f.kbs, ai, retriever)
	return f
}

func userTurn(content string) *types.ChatRequest {
	return &types.ChatRequest{
		Messages: []types.ChatMessage{{Role: types.RoleUserMsg, Content: content}},
	}
}

func TestStreamChatNewConversation(t *testing.T) {
	ai := &scriptedAI{fragments: []string{"Hel", "lo"}}
	f := newChatFixture(ai, false)
	sink := &recordSink{}

	f.chat.StreamChat(context.Background(), f.user, userTurn("What is Go?"), sink)

	require.Equal(t, []string{"delta", "delta", "metadata", "done"}, sink.kinds())
	assert.Equal(t, "Hello", sink.streamedText())

	done := sink.last()
	conv, err := f.conversations.FindOwned(context.Background(), done.conversationID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "What is Go?", conv.Title)

	msgs := f.messages.byConversation(conv.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleUserMsg, msgs[0].Role)
	assert.Equal(t, "What is Go?", msgs[0].Content)
	assert.Equal(t, types.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello", msgs[1].Content)
	assert.Equal(t, msgs[1].ID, done.messageID)

	// The model sees a system instruction ahead of the client history.
	require.NotEmpty(t, ai.history)
	assert.Equal(t, types.RoleSystem, ai.history[0].Role)
}

func TestStreamChatTitleTruncation(t *testing.T) {
	f := newChatFixture(&scriptedAI{fragments: []string{"ok"}}, false)
	sink := &recordSink{}
	long := strings.Repeat("x", 80)

	f.chat.StreamChat(context.Background(), f.user, userTurn(long), sink)

	done := sink.last()
	conv, err := f.conversations.FindOwned(context.Background(), done.conversationID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 50), conv.Title)
}

func TestStreamChatDefaultTitleWithoutUserMessage(t *testing.T) {
	f := newChatFixture(&scriptedAI{fragments: []string{"ok"}}, false)
	sink := &recordSink{}
	req := &types.ChatRequest{
		Messages: []types.ChatMessage{{Role: types.RoleAssistant, Content: "previous answer"}},
	}

	f.chat.StreamChat(context.Background(), f.user, req, sink)

	done := sink.last()
	require.Equal(t, "done", done.kind)
	conv, err := f.conversations.FindOwned(context.Background(), done.conversationID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "New conversation", conv.Title)

	// No user-role message in the turn means nothing to persist before the
	// model call; only the assistant reply is stored.
	msgs := f.messages.byConversation(conv.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, types.RoleAssistant, msgs[0].Role)
}

func TestStreamChatExistingConversation(t *testing.T) {
	f := newChatFixture(&scriptedAI{fragments: []string{"answer"}}, false)
	conv, err := f.conversations.Create(context.Background(), f.user.ID, "existing")
	require.NoError(t, err)

	sink := &recordSink{}
	req := userTurn("follow-up")
	req.ConversationID = conv.ID
	f.chat.StreamChat(context.Background(), f.user, req, sink)

	done := sink.last()
	require.Equal(t, "done", done.kind)
	assert.Equal(t, conv.ID, done.conversationID)
	assert.Len(t, f.conversations.items, 1)
}

func TestStreamChatForeignConversation(t *testing.T) {
	f := newChatFixture(&scriptedAI{fragments: []string{"answer"}}, false)
	other, err := f.conversations.Create(context.Background(), "someone-else", "theirs")
	require.NoError(t, err)

	sink := &recordSink{}
	req := userTurn("hi")
	req.ConversationID = other.ID
	f.chat.StreamChat(context.Background(), f.user, req, sink)

	require.Equal(t, []string{"error"}, sink.kinds())
	assert.Equal(t, "Chat failed", sink.last().message)
	assert.Empty(t, f.messages.byConversation(other.ID))
}

func TestStreamChatWithRetrieval(t *testing.T) {
	ai := &scriptedAI{fragments: []string{"grounded answer"}}
	f := newChatFixture(ai, true)
	kb, err := f.kbs.Create(context.Background(), f.user.ID, "docs", "", false)
	require.NoError(t, err)
	f.index.hits = []types.SearchHit{
		{DocID: "doc-1", Score: 0.93, Content: "passage one"},
		{DocID: "doc-2", Score: 0.81, Content: "passage two"},
	}

	sink := &recordSink{}
	req := userTurn("question")
	req.KbID = kb.ID
	f.chat.StreamChat(context.Background(), f.user, req, sink)

	require.Equal(t, []string{"delta", "metadata", "done"}, sink.kinds())
	metadata := sink.events[1]
	require.Len(t, metadata.citations, 2)
	assert.Equal(t, "doc-1", metadata.citations[0].ID)

	// Retrieved passages are folded into the system instruction.
	require.NotEmpty(t, ai.history)
	assert.Contains(t, ai.history[0].Content, "passage one")
	assert.Contains(t, ai.history[0].Content, "passage two")

	// The assistant message carries the citations for replay.
	msgs := f.messages.byConversation(sink.last().conversationID)
	require.Len(t, msgs, 2)
	assert.Len(t, msgs[1].Citations, 2)
}

func TestStreamChatPublicKbReadableByNonOwner(t *testing.T) {
	ai := &scriptedAI{fragments: []string{"ok"}}
	f := newChatFixture(ai, true)
	kb, err := f.kbs.Create(context.Background(), "someone-else", "shared", "", true)
	require.NoError(t, err)
	f.index.hits = []types.SearchHit{{DocID: "doc-1", Score: 0.9, Content: "shared passage"}}

	sink := &recordSink{}
	req := userTurn("question")
	req.KbID = kb.ID
	f.chat.StreamChat(context.Background(), f.user, req, sink)

	require.Equal(t, "done", sink.last().kind)
	assert.Len(t, sink.events[1].citations, 1)
}

func TestStreamChatUnknownKbDegradesToNoContext(t *testing.T) {
	ai := &scriptedAI{fragments: []string{"plain answer"}}
	f := newChatFixture(ai, true)

	sink := &recordSink{}
	req := userTurn("question")
	req.KbID = "no-such-kb"
	f.chat.StreamChat(context.Background(), f.user, req, sink)

	// The turn completes without retrieval rather than failing.
	require.Equal(t, []string{"delta", "metadata", "done"}, sink.kinds())
	assert.Empty(t, sink.events[1].citations)
	assert.NotContains(t, ai.history[0].Content, "Context:")
}

func TestStreamChatModelFailureAfterDeltas(t *testing.T) {
	ai := &scriptedAI{fragments: []string{"par"}, err: errors.New("backend down")}
	f := newChatFixture(ai, false)

	sink := &recordSink{}
	f.chat.StreamChat(context.Background(), f.user, userTurn("hi"), sink)

	require.Equal(t, []string{"delta", "error"}, sink.kinds())

	// The user message survived even though the model call failed.
	require.Len(t, f.messages.items, 1)
	assert.Equal(t, types.RoleUserMsg, f.messages.items[0].Role)
}

func TestStreamChatClientDisconnectPersistsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ai := aiFunc(func(ctx context.Context, messages []types.ChatMessage, opts types.ChatOptions, handler types.StreamHandler) error {
		if err := handler("partial answer"); err != nil {
			return err
		}
		cancel()
		return ctx.Err()
	})
	f := newChatFixture(ai, false)

	sink := &recordSink{}
	f.chat.StreamChat(ctx, f.user, userTurn("hi"), sink)

	// Nothing is written after the disconnect, not even an error event.
	require.Equal(t, []string{"delta"}, sink.kinds())

	var assistant *types.Message
	for i := range f.messages.items {
		if f.messages.items[i].Role == types.RoleAssistant {
			assistant = &f.messages.items[i]
		}
	}
	require.NotNil(t, assistant)
	assert.Equal(t, "partial answer", assistant.Content)
}

func TestStreamChatBootstrapIdempotence(t *testing.T) {
	f := newChatFixture(&scriptedAI{fragments: []string{"answer"}}, false)

	// Two turns without an identifier create two distinct conversations.
	first := &recordSink{}
	f.chat.StreamChat(context.Background(), f.user, userTurn("one"), first)
	second := &recordSink{}
	f.chat.StreamChat(context.Background(), f.user, userTurn("two"), second)
	require.NotEqual(t, first.last().conversationID, second.last().conversationID)
	assert.Len(t, f.conversations.items, 2)

	// Two turns on the same identifier append: user, assistant, user, assistant.
	req := userTurn("three")
	req.ConversationID = first.last().conversationID
	third := &recordSink{}
	f.chat.StreamChat(context.Background(), f.user, req, third)
	require.Equal(t, "done", third.last().kind)

	msgs := f.messages.byConversation(req.ConversationID)
	require.Len(t, msgs, 4)
	assert.Equal(t, []string{
		types.RoleUserMsg, types.RoleAssistant, types.RoleUserMsg, types.RoleAssistant,
	}, []string{msgs[0].Role, msgs[1].Role, msgs[2].Role, msgs[3].Role})
}

func TestStreamChatSimulatedFallback(t *testing.T) {
	// No credential configured: the simulated backend still yields a
	// multi-fragment stream ending in done.
	f := newChatFixture(&SimulatedAIService{}, false)
	sink := &recordSink{}
	f.chat.StreamChat(context.Background(), f.user, userTurn("hi"), sink)

	kinds := sink.kinds()
	require.Equal(t, "done", kinds[len(kinds)-1])
	deltas := 0
	for _, kind := range kinds {
		if kind == "delta" {
			deltas++
		}
	}
	assert.Greater(t, deltas, 1)
	assert.Equal(t, SimulatedNotice, sink.streamedText())
}

func TestStreamChatAssistantPersistFailure(t *testing.T) {
	f := newChatFixture(&scriptedAI{fragments: []string{"answer"}}, false)
	f.messages.appendErr = errors.New("db down")
	f.messages.failRole = types.RoleAssistant

	sink := &recordSink{}
	f.chat.StreamChat(context.Background(), f.user, userTurn("hi"), sink)

	// The deltas already reached the client; the turn still must terminate
	// with a single error event.
	require.Equal(t, []string{"delta", "error"}, sink.kinds())
	require.Len(t, f.messages.items, 1)
	assert.Equal(t, types.RoleUserMsg, f.messages.items[0].Role)
}

func TestStreamChatUserPersistFailure(t *testing.T) {
	f := newChatFixture(&scriptedAI{fragments: []string{"ok"}}, false)
	f.messages.appendErr = errors.New("db down")

	sink := &recordSink{}
	f.chat.StreamChat(context.Background(), f.user, userTurn("hi"), sink)

	require.Equal(t, []string{"error"}, sink.kinds())
}

func TestDeleteConversationCascades(t *testing.T) {
	f := newChatFixture(&scriptedAI{fragments: []string{"ok"}}, false)
	sink := &recordSink{}
	f.chat.StreamChat(context.Background(), f.user, userTurn("hi"), sink)
	convID := sink.last().conversationID
	require.NotEmpty(t, f.messages.byConversation(convID))

	require.NoError(t, f.chat.DeleteConversation(context.Background(), convID, f.user.ID))
	assert.Empty(t, f.messages.byConversation(convID))

	err := f.chat.DeleteConversation(context.Background(), convID, f.user.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestListMessagesChecksOwnership(t *testing.T) {
	f := newChatFixture(&scriptedAI{fragments: []string{"ok"}}, false)
	conv, err := f.conversations.Create(context.Background(), "someone-else", "theirs")
	require.NoError(t, err)

	_, err = f.chat.ListMessages(context.Background(), conv.ID, f.user.ID, time.Time{}, 50)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
