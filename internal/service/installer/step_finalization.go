package installer

import (
	tea "github.com/charmbracelet/bubbletea"
)

// FinalizationStep fills defaults and drops values the chosen setup ignores.
type FinalizationStep struct{}

func NewFinalizationStep() Step {
	return &FinalizationStep{}
}

func (s *FinalizationStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *FinalizationStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	finalize(state)
	return nil, nil
}

func (s *FinalizationStep) View(state *InstallState) string {
	return "Finalizing configuration...\n"
}

func finalize(state *InstallState) {
	if state.EnvVars[keyAlertChannel] == "" {
		state.EnvVars[keyAlertChannel] = "log"
	}
	if !state.telegramSelected() {
		delete(state.EnvVars, keyTelegramToken)
		delete(state.EnvVars, keyTelegramOwner)
	}
	if state.EnvVars[keyDebug] == "" {
		state.EnvVars[keyDebug] = "0"
	}
}
