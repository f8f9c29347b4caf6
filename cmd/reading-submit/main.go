// Command reading-submit is a terminal form that logs in to a weather
// server and submits one reading at a time.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true).
			PaddingLeft(2)

	normalStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

type step int

const (
	stepEnteringUsername step = iota
	stepEnteringLoginPassword
	stepLoggingIn
	stepSelectingCollection
	stepEnteringField
	stepSubmitting
	stepComplete
)

type model struct {
	api *apiClient

	step         step
	collections  []collection
	cursor       int
	selected     collection
	fieldIndex   int
	values       map[string]string
	username     string
	currentInput string
	message      string
	quitting     bool
}

type loginSuccessMsg struct{}
type submitSuccessMsg struct{ id uint64 }
type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

func initialModel(api *apiClient) model {
	return model{
		api:         api,
		step:        stepEnteringUsername,
		collections: collections(),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func loginUser(api *apiClient, username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := api.login(ctx, username, password); err != nil {
			return errMsg{fmt.Errorf("login failed: %w", err)}
		}
		return loginSuccessMsg{}
	}
}

func submitReading(api *apiClient, c collection, values map[string]string) tea.Cmd {
	return func() tea.Msg {
		in, err := buildInput(c, values)
		if err != nil {
			return errMsg{err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		id, err := api.submit(ctx, c, in)
		if err != nil {
			return errMsg{err}
		}
		return submitSuccessMsg{id: id}
	}
}

func (m model) typing() bool {
	return m.step == stepEnteringUsername || m.step == stepEnteringLoginPassword || m.step == stepEnteringField
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case tea.KeyBackspace:
			if len(m.currentInput) > 0 {
				r := []rune(m.currentInput)
				m.currentInput = string(r[:len(r)-1])
			}

		case tea.KeyUp:
			if m.step == stepSelectingCollection && m.cursor > 0 {
				m.cursor--
			}

		case tea.KeyDown:
			if m.step == stepSelectingCollection && m.cursor < len(m.collections)-1 {
				m.cursor++
			}

		case tea.KeyRunes, tea.KeySpace:
			if m.typing() {
				m.currentInput += msg.String()
			} else if msg.String() == "q" {
				m.quitting = true
				return m, tea.Quit
			}

		case tea.KeyEnter:
			return m.enter()
		}

	case loginSuccessMsg:
		m.step = stepSelectingCollection
		m.message = successStyle.Render("✓ Logged in as " + m.username)

	case submitSuccessMsg:
		m.step = stepComplete
		m.message = successStyle.Render(fmt.Sprintf("✓ Stored %s reading #%d", m.selected.label(), msg.id))

	case errMsg:
		m.message = errorStyle.Render("✗ " + msg.err.Error())
		if m.step == stepLoggingIn {
			m.step = stepEnteringUsername
		} else {
			m.step = stepSelectingCollection
		}
	}

	return m, nil
}

func (m model) enter() (tea.Model, tea.Cmd) {
	switch m.step {
	case stepEnteringUsername:
		if m.currentInput != "" {
			m.username = m.currentInput
			m.currentInput = ""
			m.step = stepEnteringLoginPassword
		}

	case stepEnteringLoginPassword:
		if m.currentInput != "" {
			password := m.currentInput
			m.currentInput = ""
			m.step = stepLoggingIn
			m.message = "Logging in..."
			return m, loginUser(m.api, m.username, password)
		}

	case stepSelectingCollection:
		m.selected = m.collections[m.cursor]
		m.values = make(map[string]string)
		m.fieldIndex = 0
		m.message = ""
		m.step = stepEnteringField

	case stepEnteringField:
		fields := m.selected.fields()
		m.values[fields[m.fieldIndex].name] = m.currentInput
		m.currentInput = ""
		m.fieldIndex++
		if m.fieldIndex == len(fields) {
			m.step = stepSubmitting
			m.message = "Submitting..."
			return m, submitReading(m.api, m.selected, m.values)
		}

	case stepComplete:
		m.step = stepSelectingCollection
		m.message = ""
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("Weather Reading Submit\n\n"))

	switch m.step {
	case stepEnteringUsername:
		if m.message != "" {
			s.WriteString(m.message + "\n\n")
		}
		s.WriteString(promptStyle.Render("Enter your username:\n"))
		s.WriteString(inputStyle.Render("> " + m.currentInput))
		s.WriteString("\n\nPress Enter\n")

	case stepEnteringLoginPassword:
		s.WriteString(promptStyle.Render("Enter your password:\n"))
		s.WriteString(inputStyle.Render("> " + strings.Repeat("•", len([]rune(m.currentInput)))))
		s.WriteString("\n\nPress Enter\n")

	case stepLoggingIn, stepSubmitting:
		s.WriteString(m.message + "\n")

	case stepSelectingCollection:
		if m.message != "" {
			s.WriteString(m.message + "\n\n")
		}
		s.WriteString(promptStyle.Render("Select a collection:\n\n"))
		for i, c := range m.collections {
			cursor := " "
			style := normalStyle
			if m.cursor == i {
				cursor = ">"
				style = selectedStyle
			}
			s.WriteString(fmt.Sprintf("%s %s\n", cursor, style.Render(c.label())))
		}
		s.WriteString("\nUse ↑/↓, Enter to choose, q to quit\n")

	case stepEnteringField:
		field := m.selected.fields()[m.fieldIndex]
		s.WriteString(fmt.Sprintf("%s reading (%d/%d)\n", m.selected.label(), m.fieldIndex+1, len(m.selected.fields())))
		s.WriteString(promptStyle.Render(field.prompt + ":\n"))
		s.WriteString(inputStyle.Render("> " + m.currentInput))
		s.WriteString("\n\nPress Enter\n")

	case stepComplete:
		s.WriteString(m.message + "\n")
		s.WriteString("\nPress Enter to submit another, q to quit\n")
	}

	return s.String()
}

func main() {
	defaultURL := os.Getenv("WEATHER_SERVER_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:3536"
	}
	serverURL := flag.String("server", defaultURL, "weather server base URL")
	flag.Parse()

	p := tea.NewProgram(initialModel(newAPIClient(*serverURL)))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
