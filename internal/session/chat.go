package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"callconsole/internal/logging"
	"callconsole/internal/types"
)

const (
	suggestionEntries = 2
	genericPrompt     = "The call has just started. Suggest a short, friendly opening line for the agent."
)

type ChatController struct {
	deps
	contextEntries int

	mu         sync.Mutex
	suggestSeq map[string]uint64
}

func newChatController(d deps, contextEntries int) *ChatController {
	return &ChatController{deps: d, contextEntries: contextEntries, suggestSeq: map[string]uint64{}}
}

// Load fetches the chat history. Messages already present locally and
// unknown to the server are kept after the server's list.
func (c *ChatController) Load(ctx context.Context, callID string) error {
	if callID == "" {
		return ErrCallIDRequired
	}
	epoch := c.registry.begin(callID, flagChat, func(s types.CallState) types.CallState {
		s.AIChatError = ""
		return s
	})
	return c.load(ctx, callID, epoch)
}

func (c *ChatController) load(ctx context.Context, callID string, epoch uint64) error {
	opCtx, cancel := c.scopes.op(ctx, callID)
	defer cancel()
	messages, err := c.remote.GetChatMessages(opCtx, callID)
	if err != nil {
		c.logger.Warn("remote_failed", logging.Call(callID), logging.Op("load_chat"), logging.Err(err))
		c.registry.failLoad(callID, epoch, SliceChat, errorText(err))
		return err
	}
	c.registry.finish(callID, epoch, flagChat, func(s types.CallState) types.CallState {
		s.AIChatMessages = mergeMessages(messages, s.AIChatMessages)
		s.AIChatLoaded = true
		return s
	})
	return nil
}

// SendMessage appends the agent's message and raises the typing flag before
// the remote call, then appends the AI reply. A failed request leaves the
// agent's message in place.
func (c *ChatController) SendMessage(ctx context.Context, callID, message string, level types.ResponseLevel) (types.ChatMessage, error) {
	if callID == "" {
		return types.ChatMessage{}, ErrCallIDRequired
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return types.ChatMessage{}, ErrEmptyMessage
	}
	if !level.Valid() {
		level = types.ResponseLevelQuick
	}
	sent := types.ChatMessage{
		ID:            c.newID(),
		CallID:        callID,
		Content:       message,
		Sender:        types.ChatSenderAgent,
		Timestamp:     c.now(),
		ResponseLevel: level,
	}
	var chatCtx types.ChatContext
	epoch := c.registry.begin(callID, flagTyping, func(s types.CallState) types.CallState {
		chatCtx = c.contextFor(s)
		s.AIChatMessages = append(s.AIChatMessages, sent)
		s.AIChatError = ""
		return s
	})

	opCtx, cancel := c.scopes.op(ctx, callID)
	defer cancel()
	resp, err := c.remote.SendChatMessage(opCtx, types.ChatRequest{
		CallID:          callID,
		Message:         message,
		ResponseLevel:   level,
		ClientMessageID: sent.ID,
		Context:         chatCtx,
	})
	if err == nil && resp == nil {
		err = errEmptyResponse
	}
	if err != nil {
		c.logger.Warn("remote_failed", logging.Call(callID), logging.Op("send_chat"), logging.Err(err))
		c.registry.finish(callID, epoch, flagTyping, func(s types.CallState) types.CallState {
			s.AIChatError = errorText(err)
			return s
		})
		return types.ChatMessage{}, err
	}
	reply := types.ChatMessage{
		ID:            resp.ResponseID,
		CallID:        callID,
		Content:       resp.Response,
		Sender:        types.ChatSenderAI,
		Timestamp:     c.now(),
		ResponseLevel: level,
		Suggestions:   append([]string(nil), resp.Suggestions...),
		Confidence:    resp.Confidence,
	}
	if reply.ID == "" {
		reply.ID = c.newID()
	}
	c.registry.finish(callID, epoch, flagTyping, func(s types.CallState) types.CallState {
		s.AIChatMessages = append(s.AIChatMessages, reply)
		return s
	})
	return reply, nil
}

// GenerateQuickSuggestion asks for a one-off suggestion based on the last
// two transcript entries. The result replaces any previous suggestion; when
// requests overlap the most recently started one wins.
func (c *ChatController) GenerateQuickSuggestion(ctx context.Context, callID string) (string, error) {
	if callID == "" {
		return "", ErrCallIDRequired
	}
	seq := c.nextSuggestion(callID)
	var (
		prompt  string
		chatCtx types.ChatContext
	)
	epoch := c.registry.begin(callID, flagSuggesting, func(s types.CallState) types.CallState {
		prompt = suggestionPrompt(s.Transcript)
		chatCtx = c.contextFor(s)
		return s
	})

	opCtx, cancel := c.scopes.op(ctx, callID)
	defer cancel()
	resp, err := c.remote.SendChatMessage(opCtx, types.ChatRequest{
		CallID:        callID,
		Message:       prompt,
		ResponseLevel: types.ResponseLevelQuick,
		Ephemeral:     true,
		Context:       chatCtx,
	})
	if err == nil && resp == nil {
		err = errEmptyResponse
	}
	if err != nil {
		c.logger.Warn("remote_failed", logging.Call(callID), logging.Op("quick_suggestion"), logging.Err(err))
		c.registry.finish(callID, epoch, flagSuggesting, func(s types.CallState) types.CallState {
			s.AIChatError = errorText(err)
			return s
		})
		return "", err
	}
	latest := c.latestSuggestion(callID, seq)
	c.registry.finish(callID, epoch, flagSuggesting, func(s types.CallState) types.CallState {
		if latest {
			s.QuickSuggestion = resp.Response
		}
		return s
	})
	return resp.Response, nil
}

func (c *ChatController) ClearError(callID string) {
	c.registry.UpdateIfPresent(callID, func(s types.CallState) types.CallState {
		s.AIChatError = ""
		return s
	})
}

func (c *ChatController) contextFor(s types.CallState) types.ChatContext {
	transcript := s.Transcript
	if c.contextEntries > 0 && len(transcript) > c.contextEntries {
		transcript = transcript[len(transcript)-c.contextEntries:]
	}
	return types.ChatContext{
		Transcript:    types.CloneTranscript(transcript),
		Notes:         types.CloneNotes(s.Notes),
		DocumentNotes: s.DocumentNotes,
	}
}

func (c *ChatController) nextSuggestion(callID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suggestSeq[callID]++
	return c.suggestSeq[callID]
}

func (c *ChatController) latestSuggestion(callID string, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suggestSeq[callID] == seq
}

func (c *ChatController) forget(callID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.suggestSeq, callID)
}

func suggestionPrompt(transcript []types.TranscriptEntry) string {
	if len(transcript) == 0 {
		return genericPrompt
	}
	recent := transcript
	if len(recent) > suggestionEntries {
		recent = recent[len(recent)-suggestionEntries:]
	}
	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for _, entry := range recent {
		fmt.Fprintf(&b, "%s: %s\n", entry.Speaker, entry.Text)
	}
	b.WriteString("Suggest a brief next response for the agent.")
	return b.String()
}

func mergeMessages(server, local []types.ChatMessage) []types.ChatMessage {
	out := types.CloneChatMessages(server)
	seen := make(map[string]struct{}, len(out))
	for _, msg := range out {
		seen[msg.ID] = struct{}{}
	}
	for _, msg := range local {
		if _, ok := seen[msg.ID]; ok {
			continue
		}
		out = append(out, msg)
	}
	return out
}
