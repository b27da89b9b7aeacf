package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists the chat client's bindings.
type KeyMap struct {
	Submit     key.Binding
	Newline    key.Binding
	JumpBottom key.Binding
	NewChat    key.Binding
	DeleteChat key.Binding
	PrevChat   key.Binding
	NextChat   key.Binding
	Quit       key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Newline:    key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"), key.WithHelp("alt+enter", "newline")),
		JumpBottom: key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "latest")),
		NewChat:    key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
		DeleteChat: key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "delete chat")),
		PrevChat:   key.NewBinding(key.WithKeys("ctrl+up", "alt+k"), key.WithHelp("alt+k", "prev chat")),
		NextChat:   key.NewBinding(key.WithKeys("ctrl+down", "alt+j"), key.WithHelp("alt+j", "next chat")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k KeyMap) help() []key.Binding {
	return []key.Binding{k.Submit, k.Newline, k.NewChat, k.DeleteChat, k.PrevChat, k.NextChat, k.Quit}
}
