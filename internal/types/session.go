package types

import "time"

type CallStatus string

const (
	CallStatusConnecting CallStatus = "connecting"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusActive     CallStatus = "active"
	CallStatusOnHold     CallStatus = "on-hold"
	CallStatusEnded      CallStatus = "ended"
)

type ParticipantInfo struct {
	Agent         string `json:"agent"`
	Customer      string `json:"customer"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

// CallSession is the UI-visible metadata of one open call tab. TabID may
// differ from CallID when a tab is reattached to a reconnected call.
type CallSession struct {
	CallID       string          `json:"call_id"`
	TabID        string          `json:"tab_id"`
	TabLabel     string          `json:"tab_label"`
	Participants ParticipantInfo `json:"participant_info"`
	Status       CallStatus      `json:"call_status"`
	StartedAt    time.Time       `json:"call_start_time"`
}

func (s CallStatus) Valid() bool {
	switch s {
	case CallStatusConnecting, CallStatusRinging, CallStatusActive, CallStatusOnHold, CallStatusEnded:
		return true
	}
	return false
}

func (s CallStatus) Terminal() bool {
	return s == CallStatusEnded
}

// CanTransition reports whether a call may move from s to next.
// connecting/ringing -> active <-> on-hold -> ended; any live state may end.
func (s CallStatus) CanTransition(next CallStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case CallStatusConnecting, CallStatusRinging:
		return next == CallStatusActive || next == CallStatusEnded
	case CallStatusActive:
		return next == CallStatusOnHold || next == CallStatusEnded
	case CallStatusOnHold:
		return next == CallStatusActive || next == CallStatusEnded
	}
	return false
}

// CallRecord is the durable server-side view of a session.
type CallRecord struct {
	CallID         string     `json:"call_id"`
	TabID          string     `json:"tab_id"`
	AgentID        string     `json:"agent_id"`
	SessionType    string     `json:"session_type,omitempty"`
	Priority       string     `json:"priority,omitempty"`
	Status         CallStatus `json:"status"`
	DocumentNotes  string     `json:"document_notes,omitempty"`
	TransferTarget string     `json:"transfer_target,omitempty"`
	EndReason      string     `json:"end_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ActivatedAt    *time.Time `json:"activated_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
}
