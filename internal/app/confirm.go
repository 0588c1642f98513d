package app

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	xansi "github.com/charmbracelet/x/ansi"
)

type confirmChoice int

const (
	confirmChoiceNone confirmChoice = iota
	confirmChoiceConfirm
	confirmChoiceCancel
)

const confirmMaxWidth = 60

// ConfirmController is a modal yes/no prompt. While open it consumes every
// key.
type ConfirmController struct {
	active       bool
	title        string
	message      string
	confirmLabel string
	cancelLabel  string
	selected     int
}

func NewConfirmController() *ConfirmController {
	return &ConfirmController{}
}

func (c *ConfirmController) IsOpen() bool {
	return c != nil && c.active
}

func (c *ConfirmController) Open(title, message, confirmLabel, cancelLabel string) {
	if c == nil {
		return
	}
	if confirmLabel == "" {
		confirmLabel = "Confirm"
	}
	if cancelLabel == "" {
		cancelLabel = "Cancel"
	}
	*c = ConfirmController{
		active:       true,
		title:        strings.TrimSpace(title),
		message:      strings.TrimSpace(message),
		confirmLabel: confirmLabel,
		cancelLabel:  cancelLabel,
		selected:     1,
	}
}

func (c *ConfirmController) Close() {
	if c == nil {
		return
	}
	*c = ConfirmController{}
}

// HandleKey returns whether the key was consumed and the choice it made.
// The cancel button starts selected so a stray enter keeps the call alive.
func (c *ConfirmController) HandleKey(msg tea.KeyPressMsg) (bool, confirmChoice) {
	if !c.IsOpen() {
		return false, confirmChoiceNone
	}
	switch msg.String() {
	case "esc", "q", "n", "N":
		return true, confirmChoiceCancel
	case "y", "Y":
		return true, confirmChoiceConfirm
	case "left", "h":
		c.selected = 0
	case "right", "l":
		c.selected = 1
	case "tab", "shift+tab":
		c.selected = 1 - c.selected
	case "enter":
		if c.selected == 0 {
			return true, confirmChoiceConfirm
		}
		return true, confirmChoiceCancel
	}
	return true, confirmChoiceNone
}

func (c *ConfirmController) View(maxWidth int) string {
	if !c.IsOpen() {
		return ""
	}
	width := confirmMaxWidth
	if maxWidth > 0 && width > maxWidth {
		width = maxWidth
	}
	// border and padding take four columns
	contentWidth := max(1, width-4)

	title := c.title
	if title == "" {
		title = "Confirm"
	}
	lines := []string{confirmTitleStyle.Render(truncateToWidth(title, contentWidth))}
	if c.message != "" {
		wrapped := xansi.Wordwrap(c.message, contentWidth, " ")
		wrapped = xansi.Hardwrap(wrapped, contentWidth, true)
		lines = append(lines, "", wrapped)
	}

	confirm, cancel := buttonStyle, buttonStyle
	if c.selected == 0 {
		confirm = selectedStyle
	} else {
		cancel = selectedStyle
	}
	buttons := confirm.Render(c.confirmLabel) + " " + cancel.Render(c.cancelLabel)
	lines = append(lines, "", truncateToWidth(buttons, contentWidth))
	return confirmBoxStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func truncateToWidth(text string, width int) string {
	if width <= 0 || xansi.StringWidth(text) <= width {
		return text
	}
	return xansi.Truncate(text, width, "…")
}
