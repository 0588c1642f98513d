package app

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"callconsole/internal/session"
	"callconsole/internal/types"
)

const (
	tabLabelWidth = 24
	minPaneWidth  = 20
	// tab bar, input, status and help lines
	chromeHeight = 4
)

func statusGlyph(status types.CallStatus) string {
	switch status {
	case types.CallStatusConnecting:
		return "…"
	case types.CallStatusRinging:
		return "☎"
	case types.CallStatusActive:
		return "●"
	case types.CallStatusOnHold:
		return "‖"
	case types.CallStatusEnded:
		return "✕"
	}
	return "?"
}

func tabLabel(tab types.CallSession) string {
	label := tab.TabLabel
	if label == "" {
		label = tab.CallID
	}
	return statusGlyph(tab.Status) + " " + runewidth.Truncate(label, tabLabelWidth, "…")
}

func renderTabBar(tabs []types.CallSession, activeTabID string, width int) string {
	if len(tabs) == 0 {
		return mutedStyle.Render("no calls · ctrl+n to start one")
	}
	parts := make([]string, 0, len(tabs))
	for _, tab := range tabs {
		style := tabStyle
		if tab.TabID == activeTabID {
			style = activeTabStyle
		}
		parts = append(parts, style.Render(tabLabel(tab)))
	}
	return xansi.Truncate(lipgloss.JoinHorizontal(lipgloss.Top, parts...), width, "…")
}

func paneWidths(total int) (notes, chat, transcript int) {
	if total < minPaneWidth*3 {
		total = minPaneWidth * 3
	}
	notes = total / 4
	transcript = total / 4
	chat = total - notes - transcript
	return notes, chat, transcript
}

// innerWidth is the text width left inside a bordered, padded pane.
func innerWidth(width int) int {
	return max(1, width-4)
}

func renderPane(title, body string, width, height int) string {
	content := paneTitleStyle.Render(title) + "\n" + body
	return paneStyle.Width(width).Height(height).MaxHeight(height).Render(content)
}

func renderNotes(state types.CallState, width int) string {
	var b strings.Builder
	switch {
	case state.NotesError != "":
		b.WriteString(errorStyle.Render(state.NotesError))
		b.WriteString("\n")
	case state.NotesLoading && !state.NotesLoaded:
		b.WriteString(mutedStyle.Render("loading…"))
		b.WriteString("\n")
	}
	if doc := strings.TrimSpace(state.DocumentNotes); doc != "" {
		b.WriteString(mutedStyle.Render(xansi.Wordwrap(doc, width, " ")))
		b.WriteString("\n\n")
	}
	for _, note := range state.Notes {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(noteColors[string(types.NormalizeNoteColor(note.Color))]))
		b.WriteString(style.Render(xansi.Wordwrap("■ "+note.Content, width, " ")))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderChat(state types.CallState, width int) string {
	var b strings.Builder
	if state.AIChatError != "" {
		b.WriteString(errorStyle.Render(state.AIChatError))
		b.WriteString("\n")
	}
	for _, msg := range state.AIChatMessages {
		if msg.Sender == types.ChatSenderAI {
			b.WriteString(paneTitleStyle.Render("AI"))
			if msg.Confidence != nil {
				b.WriteString(mutedStyle.Render(fmt.Sprintf(" %.0f%%", *msg.Confidence*100)))
			}
			b.WriteString("\n")
			b.WriteString(renderMarkdown(msg.Content, width))
		} else {
			b.WriteString(agentStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(xansi.Wordwrap(msg.Content, width, " "))
		}
		b.WriteString("\n\n")
	}
	if state.IsAITyping {
		b.WriteString(mutedStyle.Render("AI is typing…"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTranscript(state types.CallState, width, height int) string {
	lines := []string{}
	if state.TranscriptError != "" {
		lines = append(lines, errorStyle.Render(state.TranscriptError))
	}
	for _, entry := range state.Transcript {
		style := customerStyle
		if entry.Speaker == types.SpeakerAgent {
			style = agentStyle
		}
		text := xansi.Wordwrap(style.Render(string(entry.Speaker)+":")+" "+entry.Text, width, " ")
		lines = append(lines, strings.Split(text, "\n")...)
	}
	// newest lines stay visible
	if height > 0 && len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	return strings.Join(lines, "\n")
}

func renderStatusLine(tabs *session.TabManager, state types.CallState, note string, width int) string {
	parts := []string{}
	if tabs.IsLoading() {
		parts = append(parts, "working…")
	}
	if msg := tabs.Error(); msg != "" {
		parts = append(parts, errorStyle.Render(msg))
	}
	if state.IsGeneratingSuggestion {
		parts = append(parts, "suggesting…")
	}
	if state.QuickSuggestion != "" {
		parts = append(parts, suggestionStyle.Render("› "+state.QuickSuggestion))
	}
	if note != "" {
		parts = append(parts, note)
	}
	return xansi.Truncate(statusStyle.Render(strings.Join(parts, " · ")), width, "…")
}

func renderHelp(k keyMap, width int) string {
	parts := make([]string, 0, len(k.help()))
	for _, b := range k.help() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return xansi.Truncate(mutedStyle.Render(strings.Join(parts, " · ")), width, "…")
}
