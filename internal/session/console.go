package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"callconsole/internal/logging"
	"callconsole/internal/types"
)

const (
	defaultRemoteTimeout  = 15 * time.Second
	defaultConcurrency    = 4
	defaultContextEntries = 10
)

type Options struct {
	AgentID     string
	SessionType string
	Priority    string
	// RemoteTimeout bounds every remote call. Zero means the default;
	// a negative value disables the timeout.
	RemoteTimeout        time.Duration
	ReconcileConcurrency int
	ChatContextEntries   int
	Logger               logging.Logger
	Now                  func() time.Time
	NewID                func() string
}

// deps is what every controller shares.
type deps struct {
	registry *Registry
	remote   RemoteAPI
	scopes   *callScopes
	logger   logging.Logger
	now      func() time.Time
	newID    func() string
}

// Console wires the registry, the tab manager, the per-call controllers and
// the reconciler around one backend.
type Console struct {
	Registry   *Registry
	Tabs       *TabManager
	Notes      *NotesController
	Chat       *ChatController
	Transcript *TranscriptController

	reconciler *Reconciler
	scopes     *callScopes
	logger     logging.Logger
}

func NewConsole(remote RemoteAPI, opts Options) *Console {
	opts = withDefaults(opts)
	timeout := opts.RemoteTimeout
	if timeout < 0 {
		timeout = 0
	}
	d := deps{
		registry: NewRegistry(),
		remote:   remote,
		scopes:   newCallScopes(timeout),
		logger:   opts.Logger,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	c := &Console{
		Registry:   d.registry,
		Notes:      newNotesController(d),
		Chat:       newChatController(d, opts.ChatContextEntries),
		Transcript: newTranscriptController(d),
		scopes:     d.scopes,
		logger:     d.logger,
	}
	c.Tabs = newTabManager(d, opts, c.forget)
	c.reconciler = newReconciler(d.registry, map[Slice]loadFunc{
		SliceNotes:      c.Notes.load,
		SliceChat:       c.Chat.load,
		SliceTranscript: c.Transcript.load,
	}, opts.ReconcileConcurrency, d.logger)
	return c
}

func withDefaults(opts Options) Options {
	if opts.AgentID == "" {
		opts.AgentID = "agent"
	}
	if opts.RemoteTimeout == 0 {
		opts.RemoteTimeout = defaultRemoteTimeout
	}
	if opts.ReconcileConcurrency <= 0 {
		opts.ReconcileConcurrency = defaultConcurrency
	}
	if opts.ChatContextEntries <= 0 {
		opts.ChatContextEntries = defaultContextEntries
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return opts
}

// Run keeps every registered call loaded until ctx ends.
func (c *Console) Run(ctx context.Context) error {
	c.logger.Info("console_started")
	defer c.logger.Info("console_stopped")
	return c.reconciler.Run(ctx)
}

// Reconcile runs one reconciliation pass and returns the number of loads
// started.
func (c *Console) Reconcile(ctx context.Context) int {
	return c.reconciler.Pass(ctx)
}

// Wait blocks until loads started by Reconcile finish.
func (c *Console) Wait() {
	c.reconciler.Wait()
}

func (c *Console) State(callID string) types.CallState {
	return c.Registry.Get(callID)
}

// ActiveState returns the state of the active tab's call.
func (c *Console) ActiveState() (types.CallSession, types.CallState, bool) {
	tab, ok := c.Tabs.Active()
	if !ok {
		return types.CallSession{}, types.CallState{}, false
	}
	return tab, c.Registry.Get(tab.CallID), true
}

// Retry clears the load failure and error of every slice of callID that
// has not loaded, so the reconciler picks it up again.
func (c *Console) Retry(callID string) bool {
	return c.Registry.clearLoadFailures(callID)
}

// SignOut drops every tab and all call state without contacting the
// backend.
func (c *Console) SignOut() {
	for _, callID := range c.Tabs.reset() {
		c.forget(callID)
	}
	c.scopes.cancelAll()
	c.Registry.Clear()
	c.logger.Info("signed_out")
}

func (c *Console) forget(callID string) {
	c.scopes.cancel(callID)
	c.Notes.forget(callID)
	c.Chat.forget(callID)
}
