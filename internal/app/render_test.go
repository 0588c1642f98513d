package app

import (
	"strings"
	"testing"

	xansi "github.com/charmbracelet/x/ansi"

	"callconsole/internal/types"
)

func TestTabBarShowsStatusGlyphs(t *testing.T) {
	tabs := []types.CallSession{
		{TabID: "a", TabLabel: "Call 1", Status: types.CallStatusActive},
		{TabID: "b", TabLabel: "Call 2", Status: types.CallStatusOnHold},
		{TabID: "c", TabLabel: "Call 3", Status: types.CallStatusRinging},
	}
	bar := xansi.Strip(renderTabBar(tabs, "b", 200))
	for _, want := range []string{"● Call 1", "‖ Call 2", "☎ Call 3"} {
		if !strings.Contains(bar, want) {
			t.Fatalf("expected %q in %q", want, bar)
		}
	}
	if got := xansi.Strip(renderTabBar(nil, "", 80)); !strings.Contains(got, "ctrl+n") {
		t.Fatalf("expected empty hint, got %q", got)
	}
}

func TestTabLabelTruncatesLongNames(t *testing.T) {
	label := tabLabel(types.CallSession{TabLabel: strings.Repeat("x", 60), Status: types.CallStatusEnded})
	if !strings.HasPrefix(label, "✕ ") || !strings.HasSuffix(label, "…") {
		t.Fatalf("unexpected label %q", label)
	}
	if w := xansi.StringWidth(label); w > tabLabelWidth+2 {
		t.Fatalf("label too wide: %d", w)
	}
}

func TestTranscriptKeepsNewestLines(t *testing.T) {
	state := types.NewCallState("call-1")
	for _, text := range []string{"one", "two", "three", "four"} {
		state.Transcript = append(state.Transcript, types.TranscriptEntry{Speaker: types.SpeakerCustomer, Text: text})
	}
	out := xansi.Strip(renderTranscript(state, 40, 2))
	if strings.Contains(out, "two") || !strings.Contains(out, "three") || !strings.Contains(out, "four") {
		t.Fatalf("expected last two lines, got %q", out)
	}
}

func TestRenderMarkdownFitsWidth(t *testing.T) {
	out := renderMarkdown("Confirm the **account number** and then read back the full mailing address on file.", 30)
	plain := xansi.Strip(out)
	if strings.Contains(plain, "**") || !strings.Contains(plain, "account") {
		t.Fatalf("expected rendered markdown, got %q", plain)
	}
	for _, line := range strings.Split(plain, "\n") {
		if w := xansi.StringWidth(line); w > 30 {
			t.Fatalf("line width %d exceeds 30: %q", w, line)
		}
	}
	if renderMarkdown("   ", 30) != "" {
		t.Fatalf("expected empty output for blank input")
	}
}
