package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
)

type clipboardMethod uint8

const (
	clipboardMethodSystem clipboardMethod = iota
	clipboardMethodOSC52
)

func (m clipboardMethod) String() string {
	if m == clipboardMethodOSC52 {
		return "terminal"
	}
	return "system"
}

var clipboardWriteAll = clipboard.WriteAll
var clipboardWriteOSC52 = writeOSC52Clipboard

// copyTextToClipboard tries the system clipboard first and falls back to an
// OSC52 escape sequence for remote terminals.
func copyTextToClipboard(text string) (clipboardMethod, error) {
	sysErr := clipboardWriteAll(text)
	if sysErr == nil {
		return clipboardMethodSystem, nil
	}
	if oscErr := clipboardWriteOSC52(text); oscErr != nil {
		return clipboardMethodSystem, fmt.Errorf("system clipboard: %s; osc52: %w", humanizeClipboardError(sysErr), oscErr)
	}
	return clipboardMethodOSC52, nil
}

func writeOSC52Clipboard(text string) error {
	if !shouldAttemptOSC52() {
		return errors.New("OSC52 unavailable for this terminal")
	}
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open /dev/tty: %w", err)
	}
	defer tty.Close()
	return writeOSC52Sequence(tty, text)
}

func writeOSC52Sequence(w io.Writer, text string) error {
	seq := osc52.New(text)
	switch {
	case os.Getenv("TMUX") != "":
		seq = seq.Tmux()
	case strings.HasPrefix(strings.ToLower(os.Getenv("TERM")), "screen"):
		seq = seq.Screen()
	}
	_, err := seq.WriteTo(w)
	return err
}

func shouldAttemptOSC52() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("CALLCONSOLE_DISABLE_OSC52"))) {
	case "1", "true", "yes", "on":
		return false
	}
	term := strings.TrimSpace(os.Getenv("TERM"))
	return term != "" && !strings.EqualFold(term, "dumb")
}

func humanizeClipboardError(err error) string {
	msg := strings.TrimSpace(err.Error())
	if msg == "exit status 1" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return "no GUI clipboard available (DISPLAY/WAYLAND_DISPLAY unset)"
	}
	return msg
}
