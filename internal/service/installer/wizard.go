package installer

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	itemStyle  = lipgloss.NewStyle().PaddingLeft(2)
	selStyle   = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("5"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Step represents a single step in the installation wizard
type Step interface {
	Init() tea.Cmd
	Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd)
	View(state *InstallState) string
}

func getSteps(dir string) []Step {
	return []Step{
		NewInputStep(keyHandle, "Enter the bot's Bluesky handle", "grey.bsky.social", validatedBy(required)),
		NewInputStep(keyAppPassword, "Enter a Bluesky app password", "xxxx-xxxx-xxxx-xxxx", secret(), validatedBy(required)),
		NewInputStep(keyOpenAI, "Enter your OpenAI API key (chat and embeddings)", "sk-...", secret(), validatedBy(required)),
		NewInputStep(keyUpdateTime, "Daily memory update time (HH:MM)", "", withDefault("03:11"), validatedBy(validUpdateTime)),
		NewInputStep(keyTimezone, "Timezone for the update time", "", withDefault("Asia/Kolkata"), validatedBy(validTimezone)),
		NewChannelStep(),
		NewInputStep(keyTelegramToken, "Enter your Telegram bot token", "123456789:ABCDEF...",
			secret(), validatedBy(required), skippedWhen(telegramNotSelected)),
		NewInputStep(keyTelegramOwner, "Enter your Telegram user id (owner)", "123456789",
			validatedBy(validOwnerID), skippedWhen(telegramNotSelected)),
		NewFinalizationStep(),
		NewSaveEnvStep(dir),
	}
}

type nextMsg struct{}

// model is the main Bubble Tea model that orchestrates the steps
type model struct {
	steps       []Step
	currentStep int
	state       *InstallState
	quitting    bool
	width       int
	height      int
}

func initialModel(dir string) model {
	return model{
		steps:       getSteps(dir),
		currentStep: 0,
		state:       NewInstallState(),
	}
}

func (m model) Init() tea.Cmd {
	if len(m.steps) > 0 && m.steps[0] != nil {
		return m.steps[0].Init()
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	if m.currentStep >= len(m.steps) {
		return m, tea.Quit
	}

	nextStep, cmd := m.steps[m.currentStep].Update(msg, m.state, m.width, m.height)

	if nextStep == nil {
		m.currentStep++
		if m.currentStep >= len(m.steps) {
			return m, tea.Quit
		}
		return m, m.steps[m.currentStep].Init()
	}

	if nextStep != m.steps[m.currentStep] {
		m.steps[m.currentStep] = nextStep
	}

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return "Installation cancelled.\n"
	}

	if m.currentStep >= len(m.steps) {
		return "Configuration complete!\n"
	}

	return titleStyle.Render("Installing GreyBot") + "\n\n" + m.steps[m.currentStep].View(m.state)
}

// RunWizard collects the configuration and writes it to dir/.env.
func RunWizard(dir string) (*InstallState, error) {
	p := tea.NewProgram(initialModel(dir), tea.WithAltScreen())
	m, err := p.Run()
	if err != nil {
		return nil, err
	}

	finalModel := m.(model)
	if finalModel.quitting {
		return nil, fmt.Errorf("greybot installation interrupted")
	}

	return finalModel.state, nil
}
