package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"golang.org/x/sync/errgroup"

	"callconsole/internal/logging"
	"callconsole/internal/session"
	"callconsole/internal/types"
)

const (
	defaultWidth  = 120
	defaultHeight = 32
)

type Options struct {
	Logger logging.Logger
	// Follow streams the live transcript of every call the backend knows.
	Follow bool
}

// Model is the agent console: a tab bar of calls and the notes, AI chat and
// transcript of the active one.
type Model struct {
	ctx     context.Context
	console *session.Console
	logger  logging.Logger
	follow  bool
	keys    keyMap

	input   textinput.Model
	chat    viewport.Model
	chatSig string
	confirm *ConfirmController
	closing string

	changes     <-chan struct{}
	unsubscribe func()
	following   map[string]struct{}

	width  int
	height int
	note   string
}

type (
	stateChangedMsg struct{}
	tabCreatedMsg   struct {
		tab     types.CallSession
		outcome session.Outcome
	}
	tabSwitchedMsg struct {
		tabID   string
		outcome session.Outcome
		err     error
	}
	tabClosedMsg struct {
		tabID   string
		outcome session.Outcome
		err     error
	}
	opResultMsg struct {
		op  string
		err error
	}
	clipboardMsg struct {
		method clipboardMethod
		err    error
	}
	followEndedMsg struct {
		callID string
		err    error
	}
)

func NewModel(ctx context.Context, console *session.Console, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	input := textinput.New()
	input.Prompt = "› "
	input.Placeholder = "ask the assistant, or ctrl+o to save as a note"
	input.Focus()
	changes, unsubscribe := console.Registry.Subscribe()
	m := &Model{
		ctx:         ctx,
		console:     console,
		logger:      logger,
		follow:      opts.Follow,
		keys:        defaultKeyMap(),
		input:       input,
		chat:        viewport.New(),
		confirm:     NewConfirmController(),
		changes:     changes,
		unsubscribe: unsubscribe,
		following:   map[string]struct{}{},
	}
	m.resize(defaultWidth, defaultHeight)
	return m
}

// Close releases the registry subscription.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m *Model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m *Model) waitForChange() tea.Cmd {
	ctx, changes := m.ctx, m.changes
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			return stateChangedMsg{}
		}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case stateChangedMsg:
		m.refreshChat()
		return m, m.waitForChange()
	case tea.KeyPressMsg:
		cmd := m.handleKey(msg)
		m.refreshChat()
		return m, cmd
	case tabCreatedMsg:
		return m, m.onTabCreated(msg)
	case tabSwitchedMsg:
		if msg.err != nil {
			m.note = "switch failed: " + msg.err.Error()
		} else if msg.outcome.Fallback() {
			m.note = "offline: " + msg.outcome.Reason
		}
		m.refreshChat()
		return m, nil
	case tabClosedMsg:
		switch {
		case msg.err != nil:
			m.note = "close failed: " + msg.err.Error()
		case msg.outcome.Fallback():
			m.note = "closed locally: " + msg.outcome.Reason
		default:
			m.note = "call ended"
		}
		m.refreshChat()
		return m, nil
	case opResultMsg:
		if msg.err != nil {
			m.note = msg.op + " failed: " + msg.err.Error()
			m.logger.Debug("console_op_failed", logging.Op(msg.op), logging.Err(msg.err))
		}
		m.refreshChat()
		return m, nil
	case clipboardMsg:
		if msg.err != nil {
			m.note = "copy failed: " + msg.err.Error()
		} else {
			m.note = "copied to " + msg.method.String() + " clipboard"
		}
		return m, nil
	case followEndedMsg:
		delete(m.following, msg.callID)
		if msg.err != nil && !errors.Is(msg.err, session.ErrStreamUnavailable) {
			m.logger.Warn("transcript_follow_ended", logging.Call(msg.callID), logging.Err(msg.err))
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if m.confirm.IsOpen() {
		_, choice := m.confirm.HandleKey(msg)
		tabID := m.closing
		switch choice {
		case confirmChoiceConfirm:
			m.confirm.Close()
			m.closing = ""
			return m.closeTab(tabID, true)
		case confirmChoiceCancel:
			m.confirm.Close()
			m.closing = ""
		}
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.NewTab):
		return m.createTab()
	case key.Matches(msg, m.keys.CloseTab):
		return m.requestClose()
	case key.Matches(msg, m.keys.NextTab):
		return m.cycle(1)
	case key.Matches(msg, m.keys.PrevTab):
		return m.cycle(-1)
	case key.Matches(msg, m.keys.Retry):
		return m.retry()
	case key.Matches(msg, m.keys.HoldResume):
		return m.holdOrResume()
	case key.Matches(msg, m.keys.Copy):
		return m.copySuggestion()
	case key.Matches(msg, m.keys.Suggest):
		return m.withActiveCall("suggest", func(ctx context.Context, callID string) error {
			_, err := m.console.Chat.GenerateQuickSuggestion(ctx, callID)
			return err
		})
	case key.Matches(msg, m.keys.Send):
		return m.submit("ask ai", func(ctx context.Context, callID, text string) error {
			_, err := m.console.Chat.SendMessage(ctx, callID, text, types.ResponseLevelImmediate)
			return err
		})
	case key.Matches(msg, m.keys.AddNote):
		return m.submit("add note", func(ctx context.Context, callID, text string) error {
			_, err := m.console.Notes.Add(ctx, callID, text, types.NoteColorYellow)
			return err
		})
	case key.Matches(msg, m.keys.DocNotes):
		return m.submit("document notes", func(ctx context.Context, callID, text string) error {
			return m.console.Notes.UpdateDocumentNotes(ctx, callID, text)
		})
	case key.Matches(msg, m.keys.Say):
		return m.submit("transcript", func(ctx context.Context, callID, text string) error {
			_, err := m.console.Transcript.AppendSegment(ctx, callID, types.SpeakerAgent, text)
			return err
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) createTab() tea.Cmd {
	m.note = ""
	ctx, tabs := m.ctx, m.console.Tabs
	return func() tea.Msg {
		tab, outcome := tabs.CreateTab(ctx)
		return tabCreatedMsg{tab: tab, outcome: outcome}
	}
}

// onTabCreated activates a confirmed session on the backend and starts
// following its transcript. A local tab is treated as connected right away.
func (m *Model) onTabCreated(msg tabCreatedMsg) tea.Cmd {
	m.refreshChat()
	if msg.outcome.Fallback() {
		m.note = "offline: " + msg.outcome.Reason
		_ = m.console.Tabs.MarkConnected(msg.tab.TabID)
		return nil
	}
	return tea.Batch(m.switchTo(msg.tab.TabID), m.followCall(msg.tab.CallID))
}

func (m *Model) switchTo(tabID string) tea.Cmd {
	ctx, tabs := m.ctx, m.console.Tabs
	return func() tea.Msg {
		outcome, err := tabs.SwitchTab(ctx, tabID)
		return tabSwitchedMsg{tabID: tabID, outcome: outcome, err: err}
	}
}

func (m *Model) followCall(callID string) tea.Cmd {
	if !m.follow {
		return nil
	}
	if _, ok := m.following[callID]; ok {
		return nil
	}
	m.following[callID] = struct{}{}
	ctx, transcript := m.ctx, m.console.Transcript
	return func() tea.Msg {
		return followEndedMsg{callID: callID, err: transcript.Follow(ctx, callID)}
	}
}

func (m *Model) cycle(step int) tea.Cmd {
	tabs := m.console.Tabs.Tabs()
	if len(tabs) < 2 {
		return nil
	}
	active := m.console.Tabs.ActiveTabID()
	idx := 0
	for i, tab := range tabs {
		if tab.TabID == active {
			idx = i
			break
		}
	}
	next := (idx + step + len(tabs)) % len(tabs)
	return m.switchTo(tabs[next].TabID)
}

// requestClose closes the active tab, asking first when its call is live.
func (m *Model) requestClose() tea.Cmd {
	tab, ok := m.console.Tabs.Active()
	if !ok {
		return nil
	}
	if tab.Status != types.CallStatusActive {
		return m.closeTab(tab.TabID, false)
	}
	m.closing = tab.TabID
	m.confirm.Open(
		"End call?",
		fmt.Sprintf("%s with %s is still live. Closing the tab hangs up.", tab.TabLabel, tab.Participants.Customer),
		"End call",
		"Keep",
	)
	return nil
}

func (m *Model) closeTab(tabID string, confirmed bool) tea.Cmd {
	if tabID == "" {
		return nil
	}
	ctx, tabs := m.ctx, m.console.Tabs
	return func() tea.Msg {
		outcome, err := tabs.CloseTab(ctx, tabID, func(types.CallSession) bool { return confirmed })
		return tabClosedMsg{tabID: tabID, outcome: outcome, err: err}
	}
}

func (m *Model) holdOrResume() tea.Cmd {
	tab, ok := m.console.Tabs.Active()
	if !ok {
		return nil
	}
	ctx, tabs := m.ctx, m.console.Tabs
	if tab.Status == types.CallStatusOnHold {
		return func() tea.Msg {
			return opResultMsg{op: "resume", err: tabs.Resume(ctx, tab.TabID)}
		}
	}
	return func() tea.Msg {
		return opResultMsg{op: "hold", err: tabs.Hold(ctx, tab.TabID)}
	}
}

func (m *Model) retry() tea.Cmd {
	tab, ok := m.console.Tabs.Active()
	if !ok {
		return nil
	}
	if m.console.Retry(tab.CallID) {
		m.note = "retrying"
	}
	return nil
}

func (m *Model) copySuggestion() tea.Cmd {
	_, state, ok := m.console.ActiveState()
	if !ok || strings.TrimSpace(state.QuickSuggestion) == "" {
		m.note = "no suggestion to copy"
		return nil
	}
	text := state.QuickSuggestion
	return func() tea.Msg {
		method, err := copyTextToClipboard(text)
		return clipboardMsg{method: method, err: err}
	}
}

func (m *Model) withActiveCall(op string, fn func(ctx context.Context, callID string) error) tea.Cmd {
	tab, ok := m.console.Tabs.Active()
	if !ok {
		m.note = "no active call"
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return opResultMsg{op: op, err: fn(ctx, tab.CallID)}
	}
}

// submit sends the input line through fn for the active call and clears it.
func (m *Model) submit(op string, fn func(ctx context.Context, callID, text string) error) tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	cmd := m.withActiveCall(op, func(ctx context.Context, callID string) error {
		return fn(ctx, callID, text)
	})
	if cmd != nil {
		m.input.Reset()
		m.note = ""
	}
	return cmd
}

func (m *Model) resize(width, height int) {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	m.width, m.height = width, height
	m.input.SetWidth(max(10, width-4))
	_, chatWidth, _ := paneWidths(width)
	m.chat.SetWidth(innerWidth(chatWidth))
	m.chat.SetHeight(max(1, m.bodyHeight()-3))
	m.chatSig = ""
	m.refreshChat()
}

func (m *Model) bodyHeight() int {
	return max(5, m.height-chromeHeight)
}

// refreshChat re-renders the chat pane when the active call's messages or
// the pane width changed.
func (m *Model) refreshChat() {
	tab, state, ok := m.console.ActiveState()
	if !ok {
		if m.chatSig != "" {
			m.chat.SetContent("")
			m.chatSig = ""
		}
		return
	}
	sig := fmt.Sprintf("%s/%d/%t/%s/%d", tab.CallID, len(state.AIChatMessages), state.IsAITyping, state.AIChatError, m.chat.Width())
	if sig == m.chatSig {
		return
	}
	m.chatSig = sig
	m.chat.SetContent(renderChat(state, m.chat.Width()))
	m.chat.GotoBottom()
}

func (m *Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m *Model) render() string {
	tabs := m.console.Tabs
	bodyHeight := m.bodyHeight()
	tab, state, ok := m.console.ActiveState()

	var body string
	switch {
	case m.confirm.IsOpen():
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, m.confirm.View(m.width))
	case !ok:
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, mutedStyle.Render("No active call"))
	default:
		notesWidth, chatWidth, transcriptWidth := paneWidths(m.width)
		contentHeight := max(1, bodyHeight-3)
		title := "AI Assist"
		if status := tabs.Status(tab.TabID); status.Error != "" {
			title += " " + errorStyle.Render("("+status.Error+")")
		}
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			renderPane("Notes", renderNotes(state, innerWidth(notesWidth)), notesWidth, bodyHeight),
			renderPane(title, m.chat.View(), chatWidth, bodyHeight),
			renderPane("Transcript", renderTranscript(state, innerWidth(transcriptWidth), contentHeight), transcriptWidth, bodyHeight),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		renderTabBar(tabs.Tabs(), tabs.ActiveTabID(), m.width),
		body,
		m.input.View(),
		renderStatusLine(tabs, state, m.note, m.width),
		renderHelp(m.keys, m.width),
	)
}

// Run drives the console's reconciliation loop and the terminal UI until
// the user quits or ctx ends.
func Run(ctx context.Context, console *session.Console, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	model := NewModel(ctx, console, opts)
	defer model.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return console.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		_, err := tea.NewProgram(model, tea.WithContext(gctx)).Run()
		if errors.Is(err, tea.ErrProgramKilled) && gctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}
