package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"callconsole/internal/logging"
	"callconsole/internal/types"
)

const (
	localIDPrefix   = "local-"
	closeReason     = "agent_closed"
	holdReason      = "agent_hold"
	unknownCustomer = "Unknown caller"
)

// ConfirmFunc is asked before a live call is ended by closing its tab.
type ConfirmFunc func(types.CallSession) bool

// TabStatus is the loading and error state of the last operation on one tab.
type TabStatus struct {
	Loading bool
	Error   string
}

// TabManager owns the ordered call tabs and the active-tab pointer. Create,
// switch and close always take effect locally; the Outcome says whether the
// backend confirmed them.
type TabManager struct {
	registry    *Registry
	remote      RemoteAPI
	scopes      *callScopes
	logger      logging.Logger
	now         func() time.Time
	newID       func() string
	agentID     string
	sessionType string
	priority    string
	onForget    func(callID string)

	mu          sync.Mutex
	tabs        []types.CallSession
	activeTabID string
	status      map[string]TabStatus
	closing     map[string]struct{}
	created     int
	inflight    int
	lastErr     string
}

func newTabManager(d deps, opts Options, onForget func(string)) *TabManager {
	return &TabManager{
		registry:    d.registry,
		remote:      d.remote,
		scopes:      d.scopes,
		logger:      d.logger,
		now:         d.now,
		newID:       d.newID,
		agentID:     opts.AgentID,
		sessionType: opts.SessionType,
		priority:    opts.Priority,
		onForget:    onForget,
		status:      map[string]TabStatus{},
		closing:     map[string]struct{}{},
	}
}

// CreateTab allocates a session and makes its tab active. When the backend
// fails the tab is created with a local id and the Outcome reports the
// fallback.
func (m *TabManager) CreateTab(ctx context.Context) (types.CallSession, Outcome) {
	m.beginOp("")
	opCtx, cancel := m.scopes.bounded(ctx)
	resp, err := m.remote.CreateSession(opCtx, types.CreateSessionRequest{
		AgentID:     m.agentID,
		SessionType: m.sessionType,
		Priority:    m.priority,
	})
	cancel()
	if err == nil && (resp == nil || resp.CallID == "") {
		err = errEmptyResponse
	}

	outcome := remoteOutcome()
	var callID, tabID string
	if err != nil {
		outcome = fallbackOutcome(err)
		callID = localIDPrefix + m.newID()
		tabID = callID
		m.logger.Warn("create_session_fallback", logging.Call(callID), logging.F("fallback", true), logging.Err(err))
	} else {
		callID = resp.CallID
		tabID = resp.TabID
		if tabID == "" {
			tabID = callID
		}
	}

	m.mu.Lock()
	m.created++
	tab := types.CallSession{
		CallID:   callID,
		TabID:    tabID,
		TabLabel: fmt.Sprintf("Call %d", m.created),
		Participants: types.ParticipantInfo{
			Agent:    m.agentID,
			Customer: unknownCustomer,
		},
		Status:    types.CallStatusConnecting,
		StartedAt: m.now(),
	}
	m.tabs = append(m.tabs, tab)
	m.activeTabID = tabID
	m.status[tabID] = TabStatus{Error: outcome.Reason}
	m.endOpLocked("", "create session", err)
	m.mu.Unlock()

	m.registry.Ensure(callID)
	m.logger.Info("tab_created", logging.Tab(tabID), logging.Call(callID), logging.F("outcome", outcome.Mode.String()))
	return tab, outcome
}

// AttachCall opens a ringing tab for an existing call, such as an inbound
// call or one being reconnected. The tab gets its own id.
func (m *TabManager) AttachCall(ctx context.Context, callID string, participants types.ParticipantInfo) (types.CallSession, Outcome, error) {
	if callID == "" {
		return types.CallSession{}, Outcome{}, ErrCallIDRequired
	}
	tabID := m.newID()
	m.mu.Lock()
	m.created++
	if participants.Agent == "" {
		participants.Agent = m.agentID
	}
	if participants.Customer == "" {
		participants.Customer = unknownCustomer
	}
	tab := types.CallSession{
		CallID:       callID,
		TabID:        tabID,
		TabLabel:     fmt.Sprintf("Call %d", m.created),
		Participants: participants,
		Status:       types.CallStatusRinging,
		StartedAt:    m.now(),
	}
	m.tabs = append(m.tabs, tab)
	m.activeTabID = tabID
	m.beginOpLocked(tabID)
	m.mu.Unlock()
	m.registry.Ensure(callID)

	opCtx, cancel := m.scopes.op(ctx, callID)
	err := m.remote.ActivateSession(opCtx, callID)
	cancel()

	m.mu.Lock()
	m.endOpLocked(tabID, "activate session", err)
	m.mu.Unlock()
	if err != nil {
		m.logger.Warn("attach_call_fallback", logging.Tab(tabID), logging.Call(callID), logging.F("fallback", true), logging.Err(err))
		return tab, fallbackOutcome(err), nil
	}
	m.logger.Info("call_attached", logging.Tab(tabID), logging.Call(callID))
	return tab, remoteOutcome(), nil
}

// SwitchTab makes tabID active right away, then tells the backend. Switches
// are last-write-wins.
func (m *TabManager) SwitchTab(ctx context.Context, tabID string) (Outcome, error) {
	m.mu.Lock()
	idx := m.indexLocked(tabID)
	if idx < 0 || m.isClosingLocked(tabID) {
		m.lastErr = ErrTabNotFound.Error()
		m.mu.Unlock()
		return Outcome{}, ErrTabNotFound
	}
	callID := m.tabs[idx].CallID
	m.activeTabID = tabID
	m.beginOpLocked(tabID)
	m.mu.Unlock()

	opCtx, cancel := m.scopes.op(ctx, callID)
	err := m.remote.ActivateSession(opCtx, callID)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.endOpLocked(tabID, "activate session", err)
	if err != nil {
		m.logger.Warn("activate_session_fallback", logging.Tab(tabID), logging.Call(callID), logging.F("fallback", true), logging.Err(err))
		return fallbackOutcome(err), nil
	}
	if idx := m.indexLocked(tabID); idx >= 0 && !m.isClosingLocked(tabID) {
		switch m.tabs[idx].Status {
		case types.CallStatusConnecting, types.CallStatusRinging:
			m.tabs[idx].Status = types.CallStatusActive
		}
	}
	return remoteOutcome(), nil
}

// CloseTab ends the tab's session and removes the tab. Closing a tab whose
// call is active needs confirm to return true; otherwise nothing changes
// and ErrConfirmationRequired is returned. The tab is removed even when the
// backend fails.
func (m *TabManager) CloseTab(ctx context.Context, tabID string, confirm ConfirmFunc) (Outcome, error) {
	var (
		tab       types.CallSession
		shared    bool
		confirmed bool
	)
	for {
		m.mu.Lock()
		idx := m.indexLocked(tabID)
		if idx < 0 || m.isClosingLocked(tabID) {
			m.mu.Unlock()
			return Outcome{}, ErrTabNotFound
		}
		tab = m.tabs[idx]
		if tab.Status == types.CallStatusActive && !confirmed {
			m.mu.Unlock()
			if confirm == nil || !confirm(tab) {
				return Outcome{}, ErrConfirmationRequired
			}
			confirmed = true
			continue
		}
		m.closing[tabID] = struct{}{}
		shared = m.sharedLocked(tab.CallID, tabID)
		m.beginOpLocked(tabID)
		m.mu.Unlock()
		break
	}

	if !shared {
		m.scopes.cancel(tab.CallID)
	}
	opCtx, cancel := m.scopes.bounded(ctx)
	err := m.remote.EndSession(opCtx, tab.CallID, closeReason)
	cancel()

	m.mu.Lock()
	m.endOpLocked(tabID, "end session", err)
	m.removeLocked(tabID)
	delete(m.closing, tabID)
	delete(m.status, tabID)
	shared = m.sharedLocked(tab.CallID, "")
	m.mu.Unlock()

	if !shared {
		m.registry.Remove(tab.CallID)
		if m.onForget != nil {
			m.onForget(tab.CallID)
		}
	}
	if err != nil {
		m.logger.Warn("end_session_fallback", logging.Tab(tabID), logging.Call(tab.CallID), logging.F("fallback", true), logging.Err(err))
		return fallbackOutcome(err), nil
	}
	m.logger.Info("tab_closed", logging.Tab(tabID), logging.Call(tab.CallID))
	return remoteOutcome(), nil
}

// Hold puts an active call on hold.
func (m *TabManager) Hold(ctx context.Context, tabID string) error {
	return m.control(ctx, tabID, "hold", types.CallStatusOnHold, func(ctx context.Context, cc CallControlAPI, callID string) error {
		return cc.HoldCall(ctx, callID, holdReason)
	})
}

// Resume reactivates a call that is on hold.
func (m *TabManager) Resume(ctx context.Context, tabID string) error {
	tab, ok := m.Tab(tabID)
	if !ok {
		return ErrTabNotFound
	}
	if tab.Status != types.CallStatusOnHold {
		return ErrInvalidTransition
	}
	return m.control(ctx, tabID, "resume", types.CallStatusActive, func(ctx context.Context, _ CallControlAPI, callID string) error {
		return m.remote.ActivateSession(ctx, callID)
	})
}

func (m *TabManager) Transfer(ctx context.Context, tabID, targetAgentID, reason string) error {
	return m.control(ctx, tabID, "transfer", types.CallStatusEnded, func(ctx context.Context, cc CallControlAPI, callID string) error {
		return cc.TransferCall(ctx, callID, targetAgentID, reason)
	})
}

// Hangup ends the call but keeps its tab open; an ended tab closes without
// confirmation.
func (m *TabManager) Hangup(ctx context.Context, tabID, reason string) error {
	return m.control(ctx, tabID, "hangup", types.CallStatusEnded, func(ctx context.Context, cc CallControlAPI, callID string) error {
		return cc.EndCall(ctx, callID, reason)
	})
}

// MarkConnected moves a connecting or ringing call to active. A tab that
// is being closed is not promoted.
func (m *TabManager) MarkConnected(tabID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(tabID)
	if idx < 0 || m.isClosingLocked(tabID) {
		return ErrTabNotFound
	}
	switch m.tabs[idx].Status {
	case types.CallStatusConnecting, types.CallStatusRinging:
		m.tabs[idx].Status = types.CallStatusActive
		return nil
	case types.CallStatusActive:
		return nil
	}
	return ErrInvalidTransition
}

// control runs a call-control request. Unlike create, switch and close it
// has no local fallback: the status changes only when the backend agrees.
func (m *TabManager) control(ctx context.Context, tabID, op string, next types.CallStatus, fn func(context.Context, CallControlAPI, string) error) error {
	cc, ok := m.remote.(CallControlAPI)
	if !ok {
		return ErrCallControlUnavailable
	}
	m.mu.Lock()
	idx := m.indexLocked(tabID)
	if idx < 0 {
		m.mu.Unlock()
		return ErrTabNotFound
	}
	tab := m.tabs[idx]
	if tab.Status == next || !tab.Status.CanTransition(next) {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	m.beginOpLocked(tabID)
	m.mu.Unlock()

	opCtx, cancel := m.scopes.op(ctx, tab.CallID)
	err := fn(opCtx, cc, tab.CallID)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.endOpLocked(tabID, op, err)
	if err != nil {
		m.logger.Warn("call_control_failed", logging.Tab(tabID), logging.Call(tab.CallID), logging.Op(op), logging.Err(err))
		return err
	}
	if idx := m.indexLocked(tabID); idx >= 0 {
		m.tabs[idx].Status = next
	}
	m.logger.Info("call_status_changed", logging.Tab(tabID), logging.Call(tab.CallID), logging.F("status", string(next)))
	return nil
}

func (m *TabManager) Tabs() []types.CallSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.CallSession(nil), m.tabs...)
}

func (m *TabManager) Tab(tabID string) (types.CallSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(tabID)
	if idx < 0 {
		return types.CallSession{}, false
	}
	return m.tabs[idx], true
}

// ActiveTabID returns "" when no tab is active.
func (m *TabManager) ActiveTabID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeTabID
}

func (m *TabManager) Active() (types.CallSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(m.activeTabID)
	if idx < 0 {
		return types.CallSession{}, false
	}
	return m.tabs[idx], true
}

func (m *TabManager) Status(tabID string) TabStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[tabID]
}

// Error is the error of the most recent failed tab operation, cleared when
// the next one starts.
func (m *TabManager) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// IsLoading reports whether any tab operation is in flight.
func (m *TabManager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight > 0
}

// reset drops every tab without contacting the backend and returns the
// call ids that were open.
func (m *TabManager) reset() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.tabs))
	for _, tab := range m.tabs {
		ids = append(ids, tab.CallID)
	}
	m.tabs = nil
	m.activeTabID = ""
	m.status = map[string]TabStatus{}
	m.closing = map[string]struct{}{}
	m.lastErr = ""
	return ids
}

func (m *TabManager) beginOp(tabID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beginOpLocked(tabID)
}

func (m *TabManager) beginOpLocked(tabID string) {
	m.inflight++
	m.lastErr = ""
	if tabID != "" {
		m.status[tabID] = TabStatus{Loading: true}
	}
}

func (m *TabManager) endOpLocked(tabID, op string, err error) {
	if m.inflight > 0 {
		m.inflight--
	}
	if err != nil {
		m.lastErr = fmt.Sprintf("%s: %s", op, errorText(err))
	}
	if tabID == "" {
		return
	}
	if m.indexLocked(tabID) < 0 {
		delete(m.status, tabID)
		return
	}
	m.status[tabID] = TabStatus{Error: errorText(err)}
}

func (m *TabManager) isClosingLocked(tabID string) bool {
	_, ok := m.closing[tabID]
	return ok
}

func (m *TabManager) indexLocked(tabID string) int {
	if tabID == "" {
		return -1
	}
	for i, tab := range m.tabs {
		if tab.TabID == tabID {
			return i
		}
	}
	return -1
}

// sharedLocked reports whether a tab other than except shows callID.
func (m *TabManager) sharedLocked(callID, except string) bool {
	for _, tab := range m.tabs {
		if tab.CallID == callID && tab.TabID != except {
			return true
		}
	}
	return false
}

func (m *TabManager) removeLocked(tabID string) {
	idx := m.indexLocked(tabID)
	if idx < 0 {
		return
	}
	m.tabs = append(m.tabs[:idx], m.tabs[idx+1:]...)
	if m.activeTabID != tabID {
		return
	}
	m.activeTabID = ""
	if len(m.tabs) > 0 {
		m.activeTabID = m.tabs[0].TabID
	}
}
