package types

import "time"

type ChatSender string

const (
	ChatSenderAgent ChatSender = "agent"
	ChatSenderAI    ChatSender = "ai"
)

type ResponseLevel string

const (
	ResponseLevelInstant   ResponseLevel = "instant"
	ResponseLevelQuick     ResponseLevel = "quick"
	ResponseLevelImmediate ResponseLevel = "immediate"
)

func (l ResponseLevel) Valid() bool {
	switch l {
	case ResponseLevelInstant, ResponseLevelQuick, ResponseLevelImmediate:
		return true
	}
	return false
}

type ChatMessage struct {
	ID            string        `json:"id"`
	CallID        string        `json:"call_id,omitempty"`
	Content       string        `json:"content"`
	Sender        ChatSender    `json:"sender"`
	Timestamp     time.Time     `json:"timestamp"`
	ResponseLevel ResponseLevel `json:"ai_response_level,omitempty"`
	Suggestions   []string      `json:"suggestions,omitempty"`
	Confidence    *float64      `json:"confidence,omitempty"`
}

func CloneChatMessages(messages []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, len(messages))
	for i, msg := range messages {
		out[i] = msg
		if msg.Suggestions != nil {
			out[i].Suggestions = append([]string(nil), msg.Suggestions...)
		}
		if msg.Confidence != nil {
			c := *msg.Confidence
			out[i].Confidence = &c
		}
	}
	return out
}
