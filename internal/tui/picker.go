package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Action represents the action to take after picker selection
type Action int

const (
	ActionNone Action = iota
	ActionClaim
	ActionTasks
	ActionQuit
)

// Account is one row of the picker.
type Account struct {
	Label     string
	Token     string // masked
	Proxy     string // display form, "no proxy" when direct
	Rank      string
	Points    string
	Unclaimed int
	Err       string // set when the account could not be queried
}

// PickerResult holds the result of the picker
type PickerResult struct {
	Action Action
	// Index is the selected account's position in the list passed to the
	// picker, or -1.
	Index int
}

// accountItem implements list.Item for account display
type accountItem struct {
	account Account
	index   int
}

func (i accountItem) Title() string {
	return i.account.Label + "  " + i.account.Token
}

func (i accountItem) Description() string {
	a := i.account
	if a.Err != "" {
		return fmt.Sprintf("✗ %s | %s", truncate(a.Err, 50), a.Proxy)
	}

	statusIcon := "✓"
	if a.Unclaimed > 0 {
		statusIcon = "●"
	}
	return fmt.Sprintf("%s %d unclaimed | rank %s | %s pts | %s",
		statusIcon, a.Unclaimed, a.Rank, a.Points, a.Proxy)
}

func (i accountItem) FilterValue() string {
	return i.account.Label
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
)

// Model is the bubbletea model for the account picker
type Model struct {
	list     list.Model
	result   PickerResult
	quitting bool
	width    int
	height   int
}

// NewPicker creates a new account picker
func NewPicker(accounts []Account) Model {
	items := make([]list.Item, len(accounts))
	for i, acc := range accounts {
		items[i] = accountItem{account: acc, index: i}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	l := list.New(items, delegate, 80, 20)
	l.Title = "Centic - Select Account"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return Model{
		list:   l,
		result: PickerResult{Index: -1},
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		// Don't handle keys if filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter", "c":
			if item, ok := m.list.SelectedItem().(accountItem); ok {
				m.result = PickerResult{Action: ActionClaim, Index: item.index}
				m.quitting = true
				return m, tea.Quit
			}

		case "t":
			if item, ok := m.list.SelectedItem().(accountItem); ok {
				m.result = PickerResult{Action: ActionTasks, Index: item.index}
				m.quitting = true
				return m, tea.Quit
			}

		case "q", "esc":
			m.result = PickerResult{Action: ActionQuit, Index: -1}
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	help := helpStyle.Render("[enter] Claim now  [t] Tasks  [/] Filter  [q] Quit")

	return m.list.View() + "\n" + help
}

// Result returns the picker result
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive account picker
func RunPicker(accounts []Account) (PickerResult, error) {
	if len(accounts) == 0 {
		return PickerResult{Action: ActionQuit, Index: -1}, nil
	}

	m := NewPicker(accounts)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}

	return finalModel.(Model).Result(), nil
}

// SimplePicker is a non-interactive picker that just lists accounts
func SimplePicker(accounts []Account) string {
	var sb strings.Builder

	sb.WriteString("Centic - Accounts\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(accounts) == 0 {
		sb.WriteString("No accounts found.\n")
		sb.WriteString("Add one token per line to tokens.txt\n")
		return sb.String()
	}

	for i, acc := range accounts {
		item := accountItem{account: acc, index: i}
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, item.Title()))
		sb.WriteString(fmt.Sprintf("   %s\n\n", item.Description()))
	}

	return sb.String()
}
