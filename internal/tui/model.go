// Package tui is the terminal front end of the chat client.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"chatbot-kit/internal/chat"
	"chatbot-kit/internal/render"
	"chatbot-kit/internal/stream"
)

// followThreshold is how many lines above the bottom still count as
// following the conversation.
const followThreshold = 3

type startedMsg struct {
	parts <-chan stream.Part
	err   error
}

type partMsg struct {
	part stream.Part
	ok   bool
}

// Model is the bubbletea model for the chat client.
type Model struct {
	ctx     context.Context
	session *chat.Session
	keys    KeyMap
	theme   string

	renderer *render.TerminalRenderer
	cache    map[string]renderedMessage

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	width, height int
	ready         bool

	streaming bool
	parts     <-chan stream.Part
	unseen    bool
	status    string
}

type renderedMessage struct {
	content string
	out     string
}

// New builds a model over an opened session. theme is a glamour standard
// style name.
func New(ctx context.Context, session *chat.Session, theme string) Model {
	ta := textarea.New()
	ta.Placeholder = "Send a message..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	vp := viewport.New(0, 0)
	vp.KeyMap.Up.SetEnabled(false)
	vp.KeyMap.Down.SetEnabled(false)
	vp.KeyMap.PageUp = key.NewBinding(key.WithKeys("pgup"))
	vp.KeyMap.PageDown = key.NewBinding(key.WithKeys("pgdown"))
	vp.KeyMap.HalfPageUp.SetEnabled(false)
	vp.KeyMap.HalfPageDown.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		session:  session,
		keys:     DefaultKeyMap(),
		theme:    theme,
		cache:    make(map[string]renderedMessage),
		input:    ta,
		viewport: vp,
		spinner:  sp,
	}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh(true)
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case startedMsg:
		if msg.err != nil {
			m.finishStream()
			if !errors.Is(msg.err, chat.ErrStream) || errors.Is(msg.err, chat.ErrPersist) {
				m.status = msg.err.Error()
			}
			m.refresh(false)
			return m, m.input.Focus()
		}
		m.parts = msg.parts
		return m, waitForPart(m.parts)

	case partMsg:
		done := true
		var err error
		if msg.ok {
			done, err = m.session.Apply(m.ctx, msg.part)
		} else {
			err = m.session.Abort(m.ctx, stream.ErrUnexpectedEnd.Error())
		}
		if err != nil {
			m.status = err.Error()
		}
		if done {
			m.finishStream()
			m.refresh(false)
			return m, m.input.Focus()
		}
		m.refresh(false)
		return m, waitForPart(m.parts)

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh(false)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	if m.nearBottom() {
		m.unseen = false
	}

	if !m.streaming {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.streaming {
			if err := m.session.Interrupt(m.ctx); err != nil {
				m.status = err.Error()
			}
			m.finishStream()
		}
		return tea.Quit, true

	case key.Matches(msg, m.keys.JumpBottom):
		m.viewport.GotoBottom()
		m.unseen = false
		return nil, true

	case key.Matches(msg, m.keys.Submit):
		return m.submit(), true

	case key.Matches(msg, m.keys.NewChat):
		if _, err := m.session.New(m.ctx); err != nil {
			m.status = err.Error()
		}
		m.refresh(true)
		return nil, true

	case key.Matches(msg, m.keys.DeleteChat):
		if err := m.session.Delete(m.ctx, m.session.Store().ActiveID()); err != nil {
			m.status = err.Error()
		}
		m.refresh(true)
		return nil, true

	case key.Matches(msg, m.keys.PrevChat):
		m.step(-1)
		return nil, true

	case key.Matches(msg, m.keys.NextChat):
		m.step(1)
		return nil, true
	}
	return nil, false
}

func (m *Model) submit() tea.Cmd {
	if m.streaming {
		return nil
	}
	value := m.input.Value()
	if strings.TrimSpace(value) == "" {
		return nil
	}

	m.status = ""
	m.streaming = true
	m.input.Reset()
	m.input.Blur()
	m.viewport.GotoBottom()
	m.unseen = false

	session, ctx := m.session, m.ctx
	begin := func() tea.Msg {
		parts, err := session.Begin(ctx, value)
		return startedMsg{parts: parts, err: err}
	}
	return tea.Batch(begin, m.spinner.Tick)
}

// step moves the active conversation by delta through the sidebar order,
// which lists the newest conversation first.
func (m *Model) step(delta int) {
	hs := m.session.Store().Histories()
	if len(hs) < 2 {
		return
	}
	active := m.session.Store().ActiveID()
	pos := 0
	for i := range hs {
		if hs[len(hs)-1-i].ID == active {
			pos = i
			break
		}
	}
	pos = (pos + delta + len(hs)) % len(hs)
	if err := m.session.Select(hs[len(hs)-1-pos].ID); err != nil {
		m.status = err.Error()
	}
	m.refresh(true)
}

func (m *Model) finishStream() {
	m.streaming = false
	m.parts = nil
}

func waitForPart(parts <-chan stream.Part) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-parts
		return partMsg{part: p, ok: ok}
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	mainWidth := m.mainWidth()

	m.input.SetWidth(mainWidth - 2)
	m.viewport.Width = mainWidth
	m.viewport.Height = max(height-inputHeight-3, 1)

	wrap := mainWidth - 4
	if m.renderer == nil || m.renderer.Width() != wrap {
		if r, err := render.NewTerminalRenderer(wrap, m.theme); err == nil {
			m.renderer = r
			clear(m.cache)
		}
	}
	m.ready = true
}

func (m Model) mainWidth() int {
	if m.width >= minSidebarTotal {
		return m.width - sidebarWidth - 1
	}
	return m.width
}

func (m Model) nearBottom() bool {
	below := m.viewport.TotalLineCount() - m.viewport.YOffset - m.viewport.Height
	return below <= followThreshold
}

// refresh re-renders the conversation. The view follows new content while
// the reader is near the bottom; otherwise it marks unseen content.
func (m *Model) refresh(jump bool) {
	if !m.ready {
		return
	}
	follow := jump || m.nearBottom()
	before := m.viewport.TotalLineCount()

	m.viewport.SetContent(m.conversationView())

	if follow {
		m.viewport.GotoBottom()
		m.unseen = false
	} else if m.viewport.TotalLineCount() != before {
		m.unseen = true
	}
}
