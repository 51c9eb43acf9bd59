// Package tui provides the Bubble Tea study interface: one word of a book at
// a time, with the learner's progress in the footer.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrlokans/learncard/internal/content"
	"github.com/mrlokans/learncard/internal/session"
	"github.com/mrlokans/learncard/internal/study"
)

// Account reports who is studying. session.Manager implements it.
type Account interface {
	Authenticated() bool
	Summary() *session.UserSummary
}

// Model implements the Bubble Tea study UI.
type Model struct {
	title   string
	nav     *study.Navigator
	account Account

	width  int
	height int

	showDetail bool
	status     string
}

var (
	headStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	phoneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	posStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	transStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#D9D9D9"))
	exampleStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#A0A0A0"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E9BD1"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// NewModel wraps a navigator that has already been started.
func NewModel(title string, nav *study.Navigator, account Account) *Model {
	if title == "" {
		title = nav.BookID()
	}
	return &Model{title: title, nav: nav, account: account}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return tea.Quit
	case tea.KeyRight, tea.KeySpace, tea.KeyEnter:
		m.move(m.nav.Next())
	case tea.KeyLeft, tea.KeyBackspace:
		m.move(m.nav.Prev())
	case tea.KeyHome:
		m.move(m.nav.GoTo(0))
	case tea.KeyEnd:
		m.move(m.nav.GoTo(m.nav.Total() - 1))
	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "q":
			return tea.Quit
		case "l", "n":
			m.move(m.nav.Next())
		case "h", "p":
			m.move(m.nav.Prev())
		case "g":
			m.move(m.nav.GoTo(0))
		case "G":
			m.move(m.nav.GoTo(m.nav.Total() - 1))
		case "d":
			m.showDetail = !m.showDetail
		}
	}
	return nil
}

func (m *Model) move(err error) {
	if err != nil {
		m.status = fmt.Sprintf("progress not saved: %v", err)
		return
	}
	m.status = ""
}

// View implements tea.Model.
func (m *Model) View() string {
	word, ok := m.nav.Current()
	if !ok {
		return ""
	}
	contentWidth := m.contentWidth()
	card := lipgloss.NewStyle().Width(contentWidth).Render(m.renderWord(word, contentWidth))
	header := titleStyle.Render(truncate(m.title, contentWidth))
	footer := m.renderFooter()

	if m.width == 0 || m.height == 0 {
		return header + "\n\n" + card + "\n\n" + footer
	}
	if m.height < 5 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
	}
	headerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Top, header)
	body := lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, card)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return headerLine + "\n" + body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 60
	}
	w := int(float64(m.width) * 0.70)
	if w < 1 {
		w = 1
	}
	return w
}

func (m *Model) renderWord(word content.WordDetail, width int) string {
	var b strings.Builder
	b.WriteString(headStyle.Render(word.WordHead))
	if phone := phonetic(word); phone != "" {
		b.WriteString("  ")
		b.WriteString(phoneStyle.Render("/" + phone + "/"))
	}
	b.WriteString("\n\n")

	for _, t := range word.Trans {
		line := t.TranCn
		if line == "" {
			line = t.TranOther
		}
		if t.Pos != "" {
			b.WriteString(posStyle.Render(t.Pos + ". "))
			line = truncate(line, width-runeWidth(t.Pos)-2)
		} else {
			line = truncate(line, width)
		}
		b.WriteString(transStyle.Render(line))
		b.WriteString("\n")
	}

	if m.showDetail {
		for _, s := range word.Sentences {
			b.WriteString("\n")
			b.WriteString(exampleStyle.Render(truncate(s.Content, width)))
			if s.Cn != "" {
				b.WriteString("\n")
				b.WriteString(exampleStyle.Render(truncate(s.Cn, width)))
			}
			b.WriteString("\n")
		}
		for _, p := range word.Phrases {
			b.WriteString(transStyle.Render(truncate(p.Phrase+"  "+p.Meaning, width)))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func phonetic(word content.WordDetail) string {
	if word.USPhone != "" {
		return word.USPhone
	}
	return word.UKPhone
}

// renderFooter shows the position, the saved progress and who is studying.
func (m *Model) renderFooter() string {
	parts := []string{fmt.Sprintf("Word %d/%d", m.nav.Index()+1, m.nav.Total())}

	if saved, ok := m.nav.Saved(); ok {
		parts = append(parts, fmt.Sprintf("Learned %d", saved.EffectiveLearned()))
	}

	if m.account != nil && m.account.Authenticated() {
		if s := m.account.Summary(); s != nil {
			parts = append(parts, fmt.Sprintf("%s: %d words in %d books", s.DisplayName, s.LearnedWords, s.LearnedBooks))
		}
	} else {
		parts = append(parts, "Guest (progress not saved)")
	}

	out := footerStyle.Render(strings.Join(parts, " | "))
	if m.status != "" {
		out += "  " + errorStyle.Render(m.status)
	}
	return out
}
