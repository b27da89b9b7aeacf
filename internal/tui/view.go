package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"chatbot-kit/internal/models"
)

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.statusLine(),
		inputStyle.Render(m.input.View()),
	)
	if m.width < minSidebarTotal {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), main)
}

func (m Model) statusLine() string {
	switch {
	case m.unseen:
		return affordance.Render("↓ new messages (ctrl+e)")
	case m.status != "":
		return errorStyle.Render("✗ " + m.status)
	case m.streaming:
		return dimStyle.Render(m.spinner.View() + " generating...")
	}
	h := help.New()
	h.Width = m.mainWidth()
	return h.ShortHelpView(m.keys.help())
}

func (m Model) sidebarView() string {
	store := m.session.Store()
	hs := store.Histories()
	active := store.ActiveID()

	var b strings.Builder
	b.WriteString(dimStyle.Render("Chats") + "\n\n")
	for i := len(hs) - 1; i >= 0; i-- {
		title := truncate(hs[i].Title, sidebarWidth-4)
		if hs[i].ID == active {
			b.WriteString(activeItem.Render("▸ "+title) + "\n")
		} else {
			b.WriteString(item.Render("  "+title) + "\n")
		}
	}
	return sidebarStyle.
		Width(sidebarWidth).
		Height(max(m.height, 1)).
		Render(b.String())
}

func (m Model) conversationView() string {
	msgs := m.session.Store().Messages()
	if len(msgs) == 0 {
		return dimStyle.Render("\n  Start a conversation by typing below.")
	}

	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		blocks = append(blocks, m.messageView(msg))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) messageView(msg models.ChatMessage) string {
	var label string
	switch msg.Role {
	case models.RoleUser:
		label = userLabel.Render("You")
	case models.RoleAssistant:
		label = botLabel.Render("Assistant")
	default:
		label = dimStyle.Render(string(msg.Role))
	}

	var body string
	switch {
	case msg.Pending && msg.Content == "":
		body = m.spinner.View() + dimStyle.Render(" Thinking...")
	case msg.Role == models.RoleAssistant:
		body = m.renderMarkdown(msg)
	default:
		body = lipgloss.NewStyle().Width(max(m.mainWidth()-2, 10)).Render(msg.Content)
	}

	out := label + "\n" + body
	if msg.Error != "" {
		out += "\n" + errorStyle.Render(fmt.Sprintf("✗ %s", msg.Error))
	}
	return out
}

// renderMarkdown memoizes rendered replies by message id and content.
func (m Model) renderMarkdown(msg models.ChatMessage) string {
	if m.renderer == nil {
		return msg.Content
	}
	if cached, ok := m.cache[msg.ID]; ok && cached.content == msg.Content {
		return cached.out
	}
	out := strings.TrimRight(m.renderer.Render(msg.Content), "\n")
	m.cache[msg.ID] = renderedMessage{content: msg.Content, out: out}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
