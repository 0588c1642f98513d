package client

import (
	"context"
	"net/http"
	"net/url"

	"callconsole/internal/types"
)

func (c *Client) GetChatMessages(ctx context.Context, callID string) ([]types.ChatMessage, error) {
	var resp ChatMessagesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/calls/"+url.PathEscape(callID)+"/chat", nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) SendChatMessage(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	var resp types.ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/chat", req, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
