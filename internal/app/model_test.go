package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	xansi "github.com/charmbracelet/x/ansi"

	"callconsole/internal/session"
	"callconsole/internal/types"
)

func newTestModel(t *testing.T, remote *fakeRemote) *Model {
	t.Helper()
	console := session.NewConsole(remote, session.Options{AgentID: "agent-1"})
	m := NewModel(context.Background(), console, Options{})
	t.Cleanup(m.Close)
	return m
}

func ctrlKey(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Mod: tea.ModCtrl}
}

func textKey(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

// drain runs cmd and feeds the console's own result messages back into the
// model until nothing is left.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatalf("command chain did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case tabCreatedMsg, tabSwitchedMsg, tabClosedMsg, opResultMsg, clipboardMsg, followEndedMsg:
			_, follow := m.Update(msg)
			queue = append(queue, follow)
		}
	}
}

func press(t *testing.T, m *Model, k tea.KeyPressMsg) {
	t.Helper()
	_, cmd := m.Update(k)
	drain(t, m, cmd)
}

func activeTab(t *testing.T, m *Model) types.CallSession {
	t.Helper()
	tab, ok := m.console.Tabs.Active()
	if !ok {
		t.Fatalf("expected an active tab")
	}
	return tab
}

func TestNewTabActivatesRemoteSession(t *testing.T) {
	remote := newFakeRemote()
	m := newTestModel(t, remote)

	press(t, m, ctrlKey('n'))

	tab := activeTab(t, m)
	if tab.CallID != "call-1" {
		t.Fatalf("expected remote call id, got %q", tab.CallID)
	}
	if tab.Status != types.CallStatusActive {
		t.Fatalf("expected active after activation, got %s", tab.Status)
	}
	if len(remote.activated) != 1 || remote.activated[0] != "call-1" {
		t.Fatalf("expected session activated, got %v", remote.activated)
	}
}

func TestNewTabFallsBackLocally(t *testing.T) {
	remote := newFakeRemote()
	remote.createErr = errOffline
	m := newTestModel(t, remote)

	press(t, m, ctrlKey('n'))

	tab := activeTab(t, m)
	if !strings.HasPrefix(tab.CallID, "local-") {
		t.Fatalf("expected local call id, got %q", tab.CallID)
	}
	if tab.Status != types.CallStatusActive {
		t.Fatalf("expected local call usable, got %s", tab.Status)
	}
	if !strings.Contains(m.note, "offline") || !strings.Contains(m.note, errOffline.Error()) {
		t.Fatalf("expected fallback reason in status, got %q", m.note)
	}
	if len(remote.activated) != 0 {
		t.Fatalf("expected no activation for a local call")
	}
}

func TestCloseActiveCallNeedsConfirmation(t *testing.T) {
	remote := newFakeRemote()
	m := newTestModel(t, remote)
	press(t, m, ctrlKey('n'))
	tab := activeTab(t, m)

	press(t, m, ctrlKey('w'))
	if !m.confirm.IsOpen() {
		t.Fatalf("expected confirm dialog for a live call")
	}
	if !strings.Contains(xansi.Strip(m.View().Content), "End call?") {
		t.Fatalf("expected dialog rendered")
	}
	press(t, m, textKey('n'))
	if m.confirm.IsOpen() {
		t.Fatalf("expected dialog closed")
	}
	if _, ok := m.console.Tabs.Tab(tab.TabID); !ok {
		t.Fatalf("expected tab kept after cancel")
	}
	if len(remote.endedCalls()) != 0 {
		t.Fatalf("expected no end request after cancel")
	}

	press(t, m, ctrlKey('w'))
	press(t, m, textKey('y'))
	if _, ok := m.console.Tabs.Tab(tab.TabID); ok {
		t.Fatalf("expected tab removed after confirm")
	}
	if ended := remote.endedCalls(); len(ended) != 1 || ended[0] != tab.CallID {
		t.Fatalf("expected call ended, got %v", ended)
	}
	if m.note != "call ended" {
		t.Fatalf("expected close reported, got %q", m.note)
	}
}

func TestCloseLocalConnectingTabSkipsConfirmation(t *testing.T) {
	remote := newFakeRemote()
	m := newTestModel(t, remote)
	tab, _ := m.console.Tabs.CreateTab(context.Background())

	press(t, m, ctrlKey('w'))
	if m.confirm.IsOpen() {
		t.Fatalf("expected no dialog for a connecting call")
	}
	if _, ok := m.console.Tabs.Tab(tab.TabID); ok {
		t.Fatalf("expected tab closed")
	}
}

func TestTabKeysCycleCalls(t *testing.T) {
	remote := newFakeRemote()
	m := newTestModel(t, remote)
	press(t, m, ctrlKey('n'))
	press(t, m, ctrlKey('n'))
	tabs := m.console.Tabs.Tabs()
	if len(tabs) != 2 || m.console.Tabs.ActiveTabID() != tabs[1].TabID {
		t.Fatalf("expected second tab active")
	}

	press(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	if got := m.console.Tabs.ActiveTabID(); got != tabs[0].TabID {
		t.Fatalf("expected wrap to first tab, got %q", got)
	}
	press(t, m, tea.KeyPressMsg{Code: tea.KeyTab, Mod: tea.ModShift})
	if got := m.console.Tabs.ActiveTabID(); got != tabs[1].TabID {
		t.Fatalf("expected back to second tab, got %q", got)
	}
}

func TestEnterAsksAssistantAndClearsInput(t *testing.T) {
	remote := newFakeRemote()
	m := newTestModel(t, remote)
	press(t, m, ctrlKey('n'))
	tab := activeTab(t, m)

	m.input.SetValue("  customer wants a refund  ")
	press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	if m.input.Value() != "" {
		t.Fatalf("expected input cleared, got %q", m.input.Value())
	}
	state := m.console.State(tab.CallID)
	if len(state.AIChatMessages) != 2 {
		t.Fatalf("expected message and reply, got %d", len(state.AIChatMessages))
	}
	if state.AIChatMessages[0].Content != "customer wants a refund" || state.AIChatMessages[1].Sender != types.ChatSenderAI {
		t.Fatalf("unexpected chat %#v", state.AIChatMessages)
	}
	if remote.chats[0].ResponseLevel != types.ResponseLevelImmediate {
		t.Fatalf("expected immediate level, got %s", remote.chats[0].ResponseLevel)
	}
	view := xansi.Strip(m.View().Content)
	if !strings.Contains(view, "account number") || strings.Contains(view, "**account number**") {
		t.Fatalf("expected rendered markdown reply in view:\n%s", view)
	}
}

func TestEnterWithoutInputDoesNothing(t *testing.T) {
	remote := newFakeRemote()
	m := newTestModel(t, remote)
	press(t, m, ctrlKey('n'))
	press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if len(remote.chats) != 0 {
		t.Fatalf("expected no request for empty input")
	}
}

func TestInputKeysWriteNotesAndTranscript(t *testing.T) {
	remote := newFakeRemote()
	m := newTestModel(t, remote)
	press(t, m, ctrlKey('n'))
	tab := activeTab(t, m)

	m.input.SetValue("Verify address")
	press(t, m, ctrlKey('o'))
	m.input.SetValue("Account 1234")
	press(t, m, ctrlKey('d'))
	m.input.SetValue("Let me check that for you")
	press(t, m, ctrlKey('t'))

	state := m.console.State(tab.CallID)
	if len(state.Notes) != 1 || state.Notes[0].Content != "Verify address" || state.Notes[0].Color != types.NoteColorYellow {
		t.Fatalf("unexpected notes %#v", state.Notes)
	}
	if state.DocumentNotes != "Account 1234" || remote.docNotes[tab.CallID] != "Account 1234" {
		t.Fatalf("expected document notes saved, got %q", state.DocumentNotes)
	}
	if len(state.Transcript) != 1 || state.Transcript[0].Speaker != types.SpeakerAgent {
		t.Fatalf("unexpected transcript %#v", state.Transcript)
	}
	view := xansi.Strip(m.View().Content)
	for _, want := range []string{"Verify address", "Account 1234", "Agent: Let me check"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestHoldKeyTogglesHold(t *testing.T) {
	remote := newFakeRemote()
	m := newTestModel(t, remote)
	press(t, m, ctrlKey('n'))

	press(t, m, ctrlKey('h'))
	if tab := activeTab(t, m); tab.Status != types.CallStatusOnHold {
		t.Fatalf("expected on-hold, got %s", tab.Status)
	}
	press(t, m, ctrlKey('h'))
	if tab := activeTab(t, m); tab.Status != types.CallStatusActive {
		t.Fatalf("expected resumed, got %s", tab.Status)
	}
	if len(remote.held) != 1 || len(remote.activated) != 2 {
		t.Fatalf("expected one hold and a resume, got %v %v", remote.held, remote.activated)
	}
}

func TestSuggestAndCopy(t *testing.T) {
	var copied string
	prevWrite := clipboardWriteAll
	clipboardWriteAll = func(text string) error {
		copied = text
		return nil
	}
	t.Cleanup(func() { clipboardWriteAll = prevWrite })

	remote := newFakeRemote()
	m := newTestModel(t, remote)
	press(t, m, ctrlKey('y'))
	if m.note != "no suggestion to copy" {
		t.Fatalf("expected nothing to copy, got %q", m.note)
	}

	press(t, m, ctrlKey('n'))
	press(t, m, ctrlKey('s'))
	_, state, _ := m.console.ActiveState()
	if state.QuickSuggestion != "Offer to waive the late fee." {
		t.Fatalf("expected suggestion stored, got %q", state.QuickSuggestion)
	}
	if !strings.Contains(xansi.Strip(m.View().Content), "waive the late fee") {
		t.Fatalf("expected suggestion in status line")
	}

	press(t, m, ctrlKey('y'))
	if copied != "Offer to waive the late fee." {
		t.Fatalf("expected suggestion copied, got %q", copied)
	}
	if m.note != "copied to system clipboard" {
		t.Fatalf("unexpected note %q", m.note)
	}
}

func TestRetryClearsLoadErrors(t *testing.T) {
	remote := newFakeRemote()
	m := newTestModel(t, remote)
	press(t, m, ctrlKey('n'))
	tab := activeTab(t, m)
	m.console.Registry.Merge(tab.CallID, session.Patch{NotesError: session.String("boom")})

	press(t, m, ctrlKey('r'))
	if got := m.console.State(tab.CallID).NotesError; got != "" {
		t.Fatalf("expected error cleared, got %q", got)
	}
	if m.note != "retrying" {
		t.Fatalf("expected retry noted, got %q", m.note)
	}
}

func TestKeysWithoutCallReportIt(t *testing.T) {
	m := newTestModel(t, newFakeRemote())
	m.input.SetValue("hello")
	press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.note != "no active call" {
		t.Fatalf("expected no active call note, got %q", m.note)
	}
	if m.input.Value() != "hello" {
		t.Fatalf("expected input kept")
	}
	if !strings.Contains(xansi.Strip(m.View().Content), "No active call") {
		t.Fatalf("expected empty state rendered")
	}
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(t, newFakeRemote())
	_, cmd := m.Update(ctrlKey('c'))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func TestFollowEndedIgnoresMissingStream(t *testing.T) {
	m := newTestModel(t, newFakeRemote())
	m.following["call-1"] = struct{}{}
	m.Update(followEndedMsg{callID: "call-1", err: session.ErrStreamUnavailable})
	if _, ok := m.following["call-1"]; ok {
		t.Fatalf("expected follow released")
	}
	m.Update(opResultMsg{op: "hold", err: errors.New("nope")})
	if m.note != "hold failed: nope" {
		t.Fatalf("unexpected note %q", m.note)
	}
}

func TestWindowResizeKeepsViewInBounds(t *testing.T) {
	remote := newFakeRemote()
	m := newTestModel(t, remote)
	press(t, m, ctrlKey('n'))
	m.Update(tea.WindowSizeMsg{Width: 90, Height: 20})

	lines := strings.Split(m.View().Content, "\n")
	if len(lines) > 20 {
		t.Fatalf("expected at most 20 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if w := xansi.StringWidth(line); w > 90 {
			t.Fatalf("line wider than window: %d", w)
		}
	}
}
