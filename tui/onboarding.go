package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sahabat/recommend"
)

// SaveResultFunc persists a finished questionnaire. Failures must not block
// the flow; the result screen is shown regardless.
type SaveResultFunc func(product recommend.Product, answers recommend.AnswerSet) error

// resultSavedMsg reports the outcome of the best-effort save.
type resultSavedMsg struct{ err error }

var productBlurbs = map[recommend.Product]string{
	recommend.ProductModal:       "Modal: pinjaman modal usaha untuk mengembangkan usaha anda.",
	recommend.ProductCelengan:    "Celengan: tabungan harian yang aman dan mudah.",
	recommend.ProductAmarthaLink: "AmarthaLink: penghasilan tambahan sebagai agen digital.",
}

type onboardingModel struct {
	flow     *recommend.Flow
	progress progress.Model
	save     SaveResultFunc

	selected  int
	done      bool
	result    recommend.Product
	saveState string
	width     int
}

// NewOnboardingModel builds the questionnaire screen.
func NewOnboardingModel(save SaveResultFunc) onboardingModel {
	pb := progress.New(progress.WithDefaultGradient())
	pb.Width = 40

	return onboardingModel{
		flow:     recommend.NewFlow(),
		progress: pb,
		save:     save,
	}
}

func (m onboardingModel) Init() tea.Cmd {
	return nil
}

func (m onboardingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.done || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "enter":
			if m.done {
				return m, tea.Quit
			}
			return m.selectAndAdvance()

		case "up", "k":
			if !m.done && m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down", "j":
			if !m.done && m.selected < len(m.flow.Current().Options)-1 {
				m.selected++
			}
			return m, nil

		case "left", "b", "backspace":
			if !m.done && m.flow.Back() {
				m.selected = m.cursorForCurrent()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case resultSavedMsg:
		if msg.err != nil {
			m.saveState = "Hasil belum tersimpan, coba lagi nanti."
		} else {
			m.saveState = "Hasil tersimpan."
		}
		return m, nil

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m onboardingModel) selectAndAdvance() (tea.Model, tea.Cmd) {
	question := m.flow.Current()
	m.flow.Select(question.Options[m.selected])

	if m.flow.Next() {
		m.selected = m.cursorForCurrent()
		return m, nil
	}

	m.done = true
	m.result = m.flow.Result()

	if m.save == nil {
		return m, nil
	}
	answers := m.flow.Answers()
	result := m.result
	save := m.save
	return m, func() tea.Msg {
		return resultSavedMsg{err: save(result, answers)}
	}
}

// cursorForCurrent puts the cursor on the previously chosen option when
// revisiting a question, or the first option otherwise.
func (m onboardingModel) cursorForCurrent() int {
	question := m.flow.Current()
	answer := m.flow.Answers()[question.ID]
	for i, option := range question.Options {
		if option == answer {
			return i
		}
	}
	return 0
}

func (m onboardingModel) View() string {
	header := titleStyle.Render("Kenalan dengan Sahabat")

	if m.done {
		var b strings.Builder
		b.WriteString(questionStyle.Render("Produk yang cocok untuk anda:"))
		b.WriteString("\n\n")
		b.WriteString(selectedStyle.Render(string(m.result)))
		b.WriteString("\n\n")
		b.WriteString(productBlurbs[m.result])
		if m.saveState != "" {
			b.WriteString("\n\n")
			b.WriteString(helpStyle.Render(m.saveState))
		}
		box := resultStyle.Render(b.String())
		help := helpStyle.Render("Enter untuk selesai")
		return lipgloss.JoinVertical(lipgloss.Left, header, "", box, "", help)
	}

	question := m.flow.Current()

	var b strings.Builder
	b.WriteString(m.progress.ViewAs(m.flow.Progress() / 100))
	b.WriteString("\n\n")
	b.WriteString(questionStyle.Render(question.Prompt))
	b.WriteString("\n\n")

	for i, option := range question.Options {
		if i == m.selected {
			b.WriteString(selectedStyle.Render(fmt.Sprintf("❯ %d. %s", i+1, option)))
		} else {
			b.WriteString(optionStyle.Render(fmt.Sprintf("  %d. %s", i+1, option)))
		}
		b.WriteString("\n")
	}

	help := helpStyle.Render("Enter pilih • ↑↓ navigasi • ← kembali • Ctrl+C keluar")
	return lipgloss.JoinVertical(lipgloss.Left, header, "", b.String(), help)
}

// RunOnboarding starts the questionnaire and returns the recommended product
// once the user finishes, or "" when they quit early.
func RunOnboarding(save SaveResultFunc) (recommend.Product, error) {
	p := tea.NewProgram(NewOnboardingModel(save), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", err
	}

	m, ok := final.(onboardingModel)
	if !ok || !m.done {
		return "", nil
	}
	return m.result, nil
}
