package client

import "callconsole/internal/types"

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
	PID     int    `json:"pid"`
}

type CallsResponse struct {
	Calls []*types.CallRecord `json:"calls"`
}

type ChatMessagesResponse struct {
	Messages []types.ChatMessage `json:"messages"`
}

type TranscriptResponse struct {
	Entries []types.TranscriptEntry `json:"entries"`
}
