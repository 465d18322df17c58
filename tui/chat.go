package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sahabat/chat"
)

// sessionChangedMsg arrives whenever the chat session applied a state change
// (one per stream event, so the assistant bubble grows chunk by chunk).
type sessionChangedMsg struct{}

// sendFinishedMsg arrives when a send's stream has fully ended.
type sendFinishedMsg struct{ err error }

// attachmentErrMsg arrives when the audio attachment cannot be encoded; the
// path is carried back so the attachment is not lost.
type attachmentErrMsg struct {
	err  error
	path string
}

// threadsLoadedMsg arrives after the initial thread list fetch.
type threadsLoadedMsg struct{}

type chatModel struct {
	session *chat.Session

	viewport  viewport.Model
	input     textinput.Model
	spinner   spinner.Model
	width     int
	height    int
	ready     bool
	sidebar   bool
	selected  int
	audioPath string
	notice    string
}

// NewChatModel builds the chat screen around an existing session.
func NewChatModel(session *chat.Session, audioPath string) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Tulis pesan..."
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#D91E49"))

	return chatModel{
		session:   session,
		input:     ti,
		spinner:   sp,
		audioPath: audioPath,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		func() tea.Msg {
			m.session.LoadThreads(context.Background())
			return threadsLoadedMsg{}
		},
	)
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "ctrl+t":
			m.sidebar = !m.sidebar
			m.selected = 0
			return m, nil

		case "ctrl+n":
			m.session.NewThread()
			m.sidebar = false
			return m, nil

		case "esc":
			if m.sidebar {
				m.sidebar = false
				return m, nil
			}
			if m.session.IsStreaming() {
				// Abandoning the stream mid-flight is the cancel gesture.
				m.session.NewThread()
				return m, nil
			}
			if m.session.Err() != "" || m.notice != "" {
				m.session.ClearError()
				m.notice = ""
				return m, nil
			}

		case "up":
			if m.sidebar {
				if m.selected > 0 {
					m.selected--
				}
				return m, nil
			}

		case "down":
			if m.sidebar {
				if m.selected < len(m.session.Threads())-1 {
					m.selected++
				}
				return m, nil
			}

		case "d":
			if m.sidebar {
				threads := m.session.Threads()
				if m.selected < len(threads) {
					id := threads[m.selected].ID
					return m, func() tea.Msg {
						m.session.DeleteThread(context.Background(), id)
						return sessionChangedMsg{}
					}
				}
				return m, nil
			}

		case "enter":
			if m.sidebar {
				threads := m.session.Threads()
				if m.selected < len(threads) {
					id := threads[m.selected].ID
					m.sidebar = false
					return m, func() tea.Msg {
						m.session.LoadThread(context.Background(), id)
						return sessionChangedMsg{}
					}
				}
				return m, nil
			}

			text := strings.TrimSpace(m.input.Value())
			audio := m.audioPath
			if text == "" && audio == "" {
				return m, nil
			}
			m.input.Reset()
			m.audioPath = ""
			m.notice = ""
			return m, sendCmd(m.session, text, audio)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewportHeight := msg.Height - 8
		if viewportHeight < 3 {
			viewportHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, viewportHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = viewportHeight
		}
		m.refreshViewport()
		return m, nil

	case sessionChangedMsg:
		m.refreshViewport()
		return m, nil

	case sendFinishedMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		m.refreshViewport()
		return m, nil

	case attachmentErrMsg:
		m.notice = msg.err.Error()
		m.audioPath = msg.path
		return m, nil

	case threadsLoadedMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if !m.sidebar {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// sendCmd runs the blocking send off the update loop. Per-event re-renders
// arrive separately through the session's change hook.
func sendCmd(session *chat.Session, text, audioPath string) tea.Cmd {
	return func() tea.Msg {
		audioBase64, err := EncodeAudioFile(audioPath)
		if err != nil {
			return attachmentErrMsg{err: err, path: audioPath}
		}
		return sendFinishedMsg{err: session.SendMessage(context.Background(), text, audioBase64)}
	}
}

func (m *chatModel) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m chatModel) renderMessages() string {
	messages := m.session.Messages()
	if len(messages) == 0 {
		return helpStyle.Render("Mulai percakapan dengan Sahabat.\nKetik pesan lalu tekan Enter.")
	}

	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString(userMsgStyle.Render("Anda: "))
			b.WriteString(msg.Content)
		default:
			b.WriteString(assistantMsgStyle.Render("Sahabat: "))
			if msg.Content == "" && msg.IsStreaming {
				b.WriteString(m.spinner.View())
			} else {
				b.WriteString(msg.Content)
				if msg.IsStreaming {
					b.WriteString(" " + m.spinner.View())
				}
			}
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m chatModel) renderSidebar() string {
	threads := m.session.Threads()

	var b strings.Builder
	b.WriteString("Percakapan\n\n")
	if len(threads) == 0 {
		b.WriteString(helpStyle.Render("Belum ada percakapan."))
	}
	for i, thread := range threads {
		title := thread.Title
		if title == "" {
			title = "(tanpa judul)"
		}
		line := fmt.Sprintf("  %s", title)
		if i == m.selected {
			line = selectedStyle.Render(fmt.Sprintf("❯ %s", title))
		}
		if thread.ID == m.session.CurrentThreadID() {
			line += " *"
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return sidebarStyle.Render(b.String())
}

func (m chatModel) View() string {
	if !m.ready {
		return "Memuat..."
	}

	title := m.session.CurrentTitle()
	if title == "" {
		title = "Sahabat"
	}
	header := titleStyle.Render(title)

	var banner string
	if errText := m.session.Err(); errText != "" {
		banner = errorStyle.Render(errText)
	} else if m.notice != "" {
		banner = errorStyle.Render(m.notice)
	} else if m.session.IsLoading() {
		banner = helpStyle.Render(m.spinner.View() + " memuat percakapan...")
	}

	var body string
	if m.sidebar {
		body = m.renderSidebar()
	} else {
		body = m.viewport.View()
	}

	input := inputStyle.Width(m.width - 4).Render(m.input.View())

	var help string
	if m.sidebar {
		help = helpStyle.Render("Enter buka • d hapus • ↑↓ pilih • Esc tutup")
	} else {
		help = helpStyle.Render("Enter kirim • Ctrl+T percakapan • Ctrl+N baru • Esc batal • Ctrl+C keluar")
	}

	sections := []string{header}
	if banner != "" {
		sections = append(sections, banner)
	}
	sections = append(sections, body, input, help)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// RunChat starts the chat screen. The session's change hook is wired to the
// program so every applied stream event triggers a re-render.
func RunChat(session *chat.Session, audioPath string) error {
	p := tea.NewProgram(NewChatModel(session, audioPath), tea.WithAltScreen())
	session.SetOnChange(func() {
		p.Send(sessionChangedMsg{})
	})
	defer session.SetOnChange(nil)

	_, err := p.Run()
	return err
}
