package app

import "charm.land/bubbles/v2/key"

type keyMap struct {
	NewTab     key.Binding
	CloseTab   key.Binding
	NextTab    key.Binding
	PrevTab    key.Binding
	Suggest    key.Binding
	Copy       key.Binding
	Send       key.Binding
	AddNote    key.Binding
	DocNotes   key.Binding
	Say        key.Binding
	HoldResume key.Binding
	Retry      key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NewTab:     key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new call")),
		CloseTab:   key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("ctrl+w", "close")),
		NextTab:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
		PrevTab:    key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev")),
		Suggest:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "suggest")),
		Copy:       key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy")),
		Send:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ask ai")),
		AddNote:    key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "note")),
		DocNotes:   key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "doc notes")),
		Say:        key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "say")),
		HoldResume: key.NewBinding(key.WithKeys("ctrl+h"), key.WithHelp("ctrl+h", "hold")),
		Retry:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "retry")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.NewTab, k.CloseTab, k.NextTab, k.Send, k.Suggest, k.Copy, k.AddNote, k.HoldResume, k.Quit}
}
