package client

import (
	"context"
	"net/http"
	"net/url"

	"callconsole/internal/types"
)

func (c *Client) CreateSession(ctx context.Context, req types.CreateSessionRequest) (*types.CreateSessionResponse, error) {
	var resp types.CreateSessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/sessions", req, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ActivateSession(ctx context.Context, callID string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(callID)+"/activate", nil, true, nil)
}

func (c *Client) EndSession(ctx context.Context, callID, reason string) error {
	body := types.EndSessionRequest{Reason: reason}
	return c.doJSON(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(callID)+"/end", body, true, nil)
}

// ListCalls returns every call the daemon knows about, newest first.
func (c *Client) ListCalls(ctx context.Context) ([]*types.CallRecord, error) {
	var resp CallsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/sessions", nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Calls, nil
}

func (c *Client) GetCall(ctx context.Context, callID string) (*types.CallRecord, error) {
	var resp types.CallRecord
	if err := c.doJSON(ctx, http.MethodGet, "/v1/calls/"+url.PathEscape(callID), nil, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) HoldCall(ctx context.Context, callID, reason string) error {
	body := types.HoldCallRequest{Reason: reason}
	return c.doJSON(ctx, http.MethodPost, "/v1/calls/"+url.PathEscape(callID)+"/hold", body, true, nil)
}

func (c *Client) EndCall(ctx context.Context, callID, reason string) error {
	body := types.EndSessionRequest{Reason: reason}
	return c.doJSON(ctx, http.MethodPost, "/v1/calls/"+url.PathEscape(callID)+"/end", body, true, nil)
}

func (c *Client) TransferCall(ctx context.Context, callID, targetAgentID, reason string) error {
	body := types.TransferCallRequest{TargetAgentID: targetAgentID, Reason: reason}
	return c.doJSON(ctx, http.MethodPost, "/v1/calls/"+url.PathEscape(callID)+"/transfer", body, true, nil)
}
