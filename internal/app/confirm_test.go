package app

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	xansi "github.com/charmbracelet/x/ansi"
)

func TestConfirmEnterDefaultsToCancel(t *testing.T) {
	c := NewConfirmController()
	c.Open("End call?", "Still live.", "End call", "Keep")

	handled, choice := c.HandleKey(tea.KeyPressMsg{Code: tea.KeyEnter})
	if !handled || choice != confirmChoiceCancel {
		t.Fatalf("expected cancel by default, handled=%v choice=%v", handled, choice)
	}

	c.HandleKey(tea.KeyPressMsg{Code: tea.KeyTab})
	if _, choice := c.HandleKey(tea.KeyPressMsg{Code: tea.KeyEnter}); choice != confirmChoiceConfirm {
		t.Fatalf("expected confirm after toggling, got %v", choice)
	}
}

func TestConfirmConsumesKeysOnlyWhileOpen(t *testing.T) {
	c := NewConfirmController()
	if handled, _ := c.HandleKey(tea.KeyPressMsg{Code: 'y', Text: "y"}); handled {
		t.Fatalf("expected closed dialog to ignore keys")
	}
	c.Open("End call?", "", "", "")
	if handled, choice := c.HandleKey(tea.KeyPressMsg{Code: 'x', Text: "x"}); !handled || choice != confirmChoiceNone {
		t.Fatalf("expected open dialog to swallow keys")
	}
	if _, choice := c.HandleKey(tea.KeyPressMsg{Code: tea.KeyEscape}); choice != confirmChoiceCancel {
		t.Fatalf("expected esc to cancel, got %v", choice)
	}
	c.Close()
	if c.IsOpen() || c.View(80) != "" {
		t.Fatalf("expected dialog closed")
	}
}

func TestConfirmViewWrapsWithinMaxWidth(t *testing.T) {
	c := NewConfirmController()
	c.Open("End call?", strings.Repeat("the customer is still on the line ", 8), "End call", "Keep")

	plain := xansi.Strip(c.View(200))
	lines := strings.Split(plain, "\n")
	if len(lines) < 6 {
		t.Fatalf("expected wrapped message, got %q", plain)
	}
	for _, line := range lines {
		if w := xansi.StringWidth(line); w > confirmMaxWidth {
			t.Fatalf("line width %d exceeds %d", w, confirmMaxWidth)
		}
	}
	if !strings.Contains(plain, "End call") || !strings.Contains(plain, "Keep") {
		t.Fatalf("expected both buttons in %q", plain)
	}
}
