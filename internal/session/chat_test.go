package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"callconsole/internal/types"
)

func TestChatSendMessageShowsAgentMessageBeforeReply(t *testing.T) {
	for _, latency := range []time.Duration{0, 5 * time.Millisecond, 30 * time.Millisecond} {
		t.Run(latency.String(), func(t *testing.T) {
			remote := newFakeRemote()
			var c *Console
			remote.sendChat = func(_ context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
				state := c.State("c1")
				if len(state.AIChatMessages) != 1 || state.AIChatMessages[0].Sender != types.ChatSenderAgent {
					t.Errorf("expected agent message visible before reply, got %+v", state.AIChatMessages)
				}
				if !state.IsAITyping {
					t.Errorf("expected typing during request")
				}
				time.Sleep(latency)
				return &types.ChatResponse{Response: "try a refund", ResponseID: "ai-1"}, nil
			}
			c = newTestConsole(t, remote)

			reply, err := c.Chat.SendMessage(context.Background(), "c1", "what now?", types.ResponseLevelImmediate)
			if err != nil {
				t.Fatalf("send: %v", err)
			}
			if reply.Sender != types.ChatSenderAI || reply.Content != "try a refund" {
				t.Fatalf("unexpected reply %+v", reply)
			}
			state := c.State("c1")
			if len(state.AIChatMessages) != 2 {
				t.Fatalf("expected 2 messages, got %d", len(state.AIChatMessages))
			}
			if state.AIChatMessages[0].Sender != types.ChatSenderAgent || state.AIChatMessages[1].Sender != types.ChatSenderAI {
				t.Fatalf("expected agent then ai, got %+v", state.AIChatMessages)
			}
			if state.IsAITyping {
				t.Fatalf("expected typing cleared")
			}
		})
	}
}

func TestChatSendMessageFailureKeepsAgentMessage(t *testing.T) {
	remote := newFakeRemote()
	remote.sendChat = func(context.Context, types.ChatRequest) (*types.ChatResponse, error) {
		return nil, errRemoteDown
	}
	c := newTestConsole(t, remote)
	if _, err := c.Chat.SendMessage(context.Background(), "c1", "hello", types.ResponseLevelQuick); !errors.Is(err, errRemoteDown) {
		t.Fatalf("expected remote error, got %v", err)
	}
	state := c.State("c1")
	if len(state.AIChatMessages) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(state.AIChatMessages))
	}
	msg := state.AIChatMessages[0]
	if msg.Sender != types.ChatSenderAgent || msg.Content != "hello" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if state.IsAITyping {
		t.Fatalf("expected typing cleared")
	}
	if state.AIChatError == "" {
		t.Fatalf("expected chat error")
	}
}

func TestChatSendMessageBlankIsRejected(t *testing.T) {
	remote := newFakeRemote()
	c := newTestConsole(t, remote)
	if _, err := c.Chat.SendMessage(context.Background(), "c1", " \n\t", types.ResponseLevelQuick); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if c.Registry.Has("c1") || remote.count("SendChatMessage") != 0 {
		t.Fatalf("expected no state change and no remote call")
	}
}

func TestChatSendMessageCarriesRecentContext(t *testing.T) {
	remote := newFakeRemote()
	var got types.ChatRequest
	remote.sendChat = func(_ context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
		got = req
		return &types.ChatResponse{Response: "ok"}, nil
	}
	c := NewConsole(remote, Options{ChatContextEntries: 3})
	transcript := make([]types.TranscriptEntry, 0, 5)
	for i := 0; i < 5; i++ {
		transcript = append(transcript, types.TranscriptEntry{ID: fmt.Sprintf("s%d", i), Speaker: types.SpeakerCustomer, Text: fmt.Sprintf("line %d", i)})
	}
	c.Registry.Merge("c1", Patch{
		Transcript:    &transcript,
		Notes:         &[]types.StickyNote{{ID: "n1", Content: "VIP"}},
		DocumentNotes: String("account 42"),
	})

	reply, err := c.Chat.SendMessage(context.Background(), "c1", "summarize", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply.ID == "" {
		t.Fatalf("expected generated id for reply without response id")
	}
	if got.ResponseLevel != types.ResponseLevelQuick {
		t.Fatalf("expected default level quick, got %q", got.ResponseLevel)
	}
	if got.ClientMessageID == "" {
		t.Fatalf("expected client message id")
	}
	if len(got.Context.Transcript) != 3 || got.Context.Transcript[0].ID != "s2" {
		t.Fatalf("expected last 3 transcript entries, got %+v", got.Context.Transcript)
	}
	if len(got.Context.Notes) != 1 || got.Context.DocumentNotes != "account 42" {
		t.Fatalf("expected notes in context, got %+v", got.Context)
	}
}

func TestChatQuickSuggestionOverwritesPrevious(t *testing.T) {
	remote := newFakeRemote()
	responses := []string{"first suggestion", "second suggestion"}
	calls := 0
	remote.sendChat = func(_ context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
		if req.ResponseLevel != types.ResponseLevelQuick || !req.Ephemeral {
			t.Errorf("expected ephemeral quick request, got %+v", req)
		}
		resp := responses[calls]
		calls++
		return &types.ChatResponse{Response: resp}, nil
	}
	c := newTestConsole(t, remote)
	for range responses {
		if _, err := c.Chat.GenerateQuickSuggestion(context.Background(), "c1"); err != nil {
			t.Fatalf("suggest: %v", err)
		}
	}
	state := c.State("c1")
	if state.QuickSuggestion != "second suggestion" {
		t.Fatalf("expected only second suggestion, got %q", state.QuickSuggestion)
	}
	if state.IsGeneratingSuggestion {
		t.Fatalf("expected generating flag cleared")
	}
	if len(state.AIChatMessages) != 0 {
		t.Fatalf("expected suggestions kept out of chat history")
	}
}

func TestChatQuickSuggestionLatestRequestWins(t *testing.T) {
	remote := newFakeRemote()
	slowEntered := make(chan struct{})
	releaseSlow := make(chan struct{})
	remote.sendChat = func(_ context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
		if remote.count("SendChatMessage") == 1 {
			close(slowEntered)
			<-releaseSlow
			return &types.ChatResponse{Response: "stale"}, nil
		}
		return &types.ChatResponse{Response: "fresh"}, nil
	}
	c := newTestConsole(t, remote)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Chat.GenerateQuickSuggestion(context.Background(), "c1")
	}()
	<-slowEntered
	if _, err := c.Chat.GenerateQuickSuggestion(context.Background(), "c1"); err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if !c.State("c1").IsGeneratingSuggestion {
		t.Fatalf("expected flag held by the slow request")
	}
	close(releaseSlow)
	<-done
	if got := c.State("c1").QuickSuggestion; got != "fresh" {
		t.Fatalf("expected fresh suggestion, got %q", got)
	}
}

func TestChatQuickSuggestionPrompt(t *testing.T) {
	if got := suggestionPrompt(nil); got != genericPrompt {
		t.Fatalf("expected generic prompt, got %q", got)
	}
	entries := []types.TranscriptEntry{
		{Speaker: types.SpeakerAgent, Text: "hello"},
		{Speaker: types.SpeakerCustomer, Text: "my card was charged twice"},
		{Speaker: types.SpeakerAgent, Text: "let me check"},
	}
	got := suggestionPrompt(entries)
	if strings.Contains(got, "hello") {
		t.Fatalf("expected only last two entries, got %q", got)
	}
	if !strings.Contains(got, "Customer: my card was charged twice") || !strings.Contains(got, "Agent: let me check") {
		t.Fatalf("expected last two entries in prompt, got %q", got)
	}
}

func TestChatQuickSuggestionFailureSetsChatError(t *testing.T) {
	remote := newFakeRemote()
	remote.sendChat = func(context.Context, types.ChatRequest) (*types.ChatResponse, error) {
		return nil, errRemoteDown
	}
	c := newTestConsole(t, remote)
	c.Registry.Merge("c1", Patch{QuickSuggestion: String("old")})
	if _, err := c.Chat.GenerateQuickSuggestion(context.Background(), "c1"); err == nil {
		t.Fatalf("expected error")
	}
	state := c.State("c1")
	if state.QuickSuggestion != "old" || state.AIChatError == "" || state.IsGeneratingSuggestion {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestChatClearError(t *testing.T) {
	c := newTestConsole(t, newFakeRemote())
	c.Registry.Merge("c1", Patch{AIChatError: String("boom"), NotesError: String("notes")})
	c.Chat.ClearError("c1")
	state := c.State("c1")
	if state.AIChatError != "" {
		t.Fatalf("expected chat error cleared")
	}
	if state.NotesError != "notes" {
		t.Fatalf("expected other slices untouched")
	}
	c.Chat.ClearError("missing")
	if c.Registry.Has("missing") {
		t.Fatalf("expected clear error not to create calls")
	}
}

func TestChatLoadMergesHistory(t *testing.T) {
	remote := newFakeRemote()
	remote.getChat = func(context.Context, string) ([]types.ChatMessage, error) {
		return []types.ChatMessage{{ID: "m1", Sender: types.ChatSenderAgent, Content: "earlier"}}, nil
	}
	c := newTestConsole(t, remote)
	c.Registry.Update("c1", func(s types.CallState) types.CallState {
		s.AIChatMessages = append(s.AIChatMessages,
			types.ChatMessage{ID: "m1", Content: "earlier"},
			types.ChatMessage{ID: "m2", Content: "pending"})
		return s
	})
	if err := c.Chat.Load(context.Background(), "c1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	state := c.State("c1")
	if !state.AIChatLoaded || len(state.AIChatMessages) != 2 || state.AIChatMessages[1].ID != "m2" {
		t.Fatalf("unexpected state %+v", state)
	}
}
