package daemon

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"callconsole/internal/logging"
	"callconsole/internal/store"
	"callconsole/internal/types"
)

type ChatService struct {
	messages  store.ChatStore
	responder Responder
	logger    logging.Logger
	now       func() time.Time
}

func NewChatService(repo store.Repository, responder Responder, logger logging.Logger) *ChatService {
	if responder == nil {
		responder = NewRuleResponder()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	svc := &ChatService{responder: responder, logger: logger, now: func() time.Time { return time.Now().UTC() }}
	if repo != nil {
		svc.messages = repo.Chat()
	}
	return svc
}

func (s *ChatService) List(ctx context.Context, callID string) ([]types.ChatMessage, error) {
	if s.messages == nil {
		return nil, unavailableError("chat store not available", nil)
	}
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return nil, invalidError("call id is required", nil)
	}
	stored, err := s.messages.List(ctx, callID)
	if err != nil {
		return nil, unavailableError("list chat", err)
	}
	out := make([]types.ChatMessage, 0, len(stored))
	for _, msg := range stored {
		out = append(out, *msg)
	}
	return out, nil
}

// Send answers an agent message. Unless the request is ephemeral both the
// agent message and the reply are stored in the call's history.
func (s *ChatService) Send(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	if s.messages == nil {
		return nil, unavailableError("chat store not available", nil)
	}
	req.CallID = strings.TrimSpace(req.CallID)
	if req.CallID == "" {
		return nil, invalidError("call_id is required", nil)
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, invalidError("message is required", nil)
	}
	if req.ResponseLevel == "" {
		req.ResponseLevel = types.ResponseLevelQuick
	}
	if !req.ResponseLevel.Valid() {
		return nil, invalidError("invalid response_level: "+string(req.ResponseLevel), nil)
	}

	resp := s.responder.Respond(req)
	resp.ResponseID = "msg_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	chatResponsesTotal.WithLabelValues(string(req.ResponseLevel)).Inc()
	if req.Ephemeral {
		return &resp, nil
	}

	sent := s.now()
	if _, err := s.messages.Append(ctx, &types.ChatMessage{
		ID:            req.ClientMessageID,
		CallID:        req.CallID,
		Content:       req.Message,
		Sender:        types.ChatSenderAgent,
		Timestamp:     sent,
		ResponseLevel: req.ResponseLevel,
	}); err != nil {
		return nil, unavailableError("store message", err)
	}
	if _, err := s.messages.Append(ctx, &types.ChatMessage{
		ID:            resp.ResponseID,
		CallID:        req.CallID,
		Content:       resp.Response,
		Sender:        types.ChatSenderAI,
		Timestamp:     s.now(),
		ResponseLevel: req.ResponseLevel,
		Suggestions:   resp.Suggestions,
		Confidence:    resp.Confidence,
	}); err != nil {
		return nil, unavailableError("store reply", err)
	}
	s.logger.Debug("chat_answered", logging.Call(req.CallID), logging.F("level", req.ResponseLevel))
	return &resp, nil
}
