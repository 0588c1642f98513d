package daemon

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"callconsole/internal/logging"
	"callconsole/internal/store"
	"callconsole/internal/types"
)

type CallService struct {
	calls  store.CallStore
	hub    *TranscriptHub
	logger logging.Logger
	now    func() time.Time
}

func NewCallService(repo store.Repository, hub *TranscriptHub, logger logging.Logger) *CallService {
	if logger == nil {
		logger = logging.Nop()
	}
	svc := &CallService{hub: hub, logger: logger, now: func() time.Time { return time.Now().UTC() }}
	if repo != nil {
		svc.calls = repo.Calls()
	}
	return svc
}

func (s *CallService) Create(ctx context.Context, req types.CreateSessionRequest) (*types.CallRecord, error) {
	if s.calls == nil {
		return nil, unavailableError("call store not available", nil)
	}
	agentID := strings.TrimSpace(req.AgentID)
	if agentID == "" {
		return nil, invalidError("agent_id is required", nil)
	}
	record, err := s.calls.Create(ctx, &types.CallRecord{
		AgentID:     agentID,
		SessionType: strings.TrimSpace(req.SessionType),
		Priority:    strings.TrimSpace(req.Priority),
		Status:      types.CallStatusConnecting,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return nil, unavailableError("create call", err)
	}
	callEventsTotal.WithLabelValues("created").Inc()
	callsLive.Inc()
	s.logger.Info("call_created", logging.Call(record.CallID), logging.F("agent_id", agentID))
	return record, nil
}

func (s *CallService) Get(ctx context.Context, callID string) (*types.CallRecord, error) {
	if s.calls == nil {
		return nil, unavailableError("call store not available", nil)
	}
	record, ok, err := s.calls.Get(ctx, callID)
	if err != nil {
		return nil, unavailableError("load call", err)
	}
	if !ok {
		return nil, notFoundError("call not found", nil)
	}
	return record, nil
}

// List returns every call, newest first.
func (s *CallService) List(ctx context.Context) ([]*types.CallRecord, error) {
	if s.calls == nil {
		return nil, unavailableError("call store not available", nil)
	}
	records, err := s.calls.List(ctx)
	if err != nil {
		return nil, unavailableError("list calls", err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Activate makes a call the agent's focus. Activating an active call is a
// no-op; a call on hold is resumed.
func (s *CallService) Activate(ctx context.Context, callID string) (*types.CallRecord, error) {
	return s.transition(ctx, callID, "activated", func(r *types.CallRecord) error {
		if r.Status == types.CallStatusActive {
			return nil
		}
		if !r.Status.CanTransition(types.CallStatusActive) {
			return conflictError("call is "+string(r.Status), nil)
		}
		r.Status = types.CallStatusActive
		if r.ActivatedAt == nil {
			ts := s.now()
			r.ActivatedAt = &ts
		}
		return nil
	})
}

func (s *CallService) Hold(ctx context.Context, callID, reason string) (*types.CallRecord, error) {
	return s.transition(ctx, callID, "held", func(r *types.CallRecord) error {
		if r.Status != types.CallStatusActive {
			return conflictError("only an active call can be held", nil)
		}
		r.Status = types.CallStatusOnHold
		return nil
	})
}

func (s *CallService) Transfer(ctx context.Context, callID string, req types.TransferCallRequest) (*types.CallRecord, error) {
	target := strings.TrimSpace(req.TargetAgentID)
	if target == "" {
		return nil, invalidError("target_agent_id is required", nil)
	}
	return s.transition(ctx, callID, "transferred", func(r *types.CallRecord) error {
		if r.Status != types.CallStatusActive && r.Status != types.CallStatusOnHold {
			return conflictError("call is "+string(r.Status), nil)
		}
		if target == r.AgentID {
			return invalidError("cannot transfer a call to its own agent", nil)
		}
		r.TransferTarget = target
		s.markEnded(r, firstNonEmpty(req.Reason, "transferred"))
		return nil
	})
}

// End terminates a call. Ending an ended call succeeds without change so a
// retried close is harmless.
func (s *CallService) End(ctx context.Context, callID, reason string) (*types.CallRecord, error) {
	return s.transition(ctx, callID, "ended", func(r *types.CallRecord) error {
		if r.Status == types.CallStatusEnded {
			return errUnchanged
		}
		s.markEnded(r, firstNonEmpty(reason, "ended"))
		return nil
	})
}

var errUnchanged = errors.New("unchanged")

func (s *CallService) markEnded(r *types.CallRecord, reason string) {
	ts := s.now()
	r.Status = types.CallStatusEnded
	r.EndReason = reason
	r.EndedAt = &ts
}

func (s *CallService) transition(ctx context.Context, callID, event string, fn func(*types.CallRecord) error) (*types.CallRecord, error) {
	if s.calls == nil {
		return nil, unavailableError("call store not available", nil)
	}
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return nil, invalidError("call id is required", nil)
	}
	unchanged := false
	record, err := s.calls.Update(ctx, callID, func(r *types.CallRecord) error {
		err := fn(r)
		if errors.Is(err, errUnchanged) {
			unchanged = true
			return nil
		}
		return err
	})
	switch {
	case errors.Is(err, store.ErrCallNotFound):
		return nil, notFoundError("call not found", err)
	case err != nil:
		var svcErr *ServiceError
		if errors.As(err, &svcErr) {
			return nil, svcErr
		}
		return nil, unavailableError("update call", err)
	}
	if unchanged {
		return record, nil
	}
	callEventsTotal.WithLabelValues(event).Inc()
	if record.Status == types.CallStatusEnded {
		callsLive.Dec()
		if s.hub != nil {
			s.hub.Close(callID)
		}
	}
	s.logger.Info("call_"+event, logging.Call(callID), logging.F("status", record.Status))
	return record, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
