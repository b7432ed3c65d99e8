package installer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandevgo/greybot/internal/config"
)

// InputStep collects one env value from a text field.
type InputStep struct {
	input    textinput.Model
	key      string
	title    string
	fallback string
	validate func(string) error
	skip     func(*InstallState) bool
	err      error
}

type inputOption func(*InputStep)

func secret() inputOption {
	return func(s *InputStep) {
		s.input.EchoMode = textinput.EchoPassword
		s.input.EchoCharacter = '•'
	}
}

// withDefault is used when the field is left empty.
func withDefault(v string) inputOption {
	return func(s *InputStep) {
		s.fallback = v
		s.input.Placeholder = v
	}
}

func validatedBy(fn func(string) error) inputOption {
	return func(s *InputStep) {
		s.validate = fn
	}
}

func skippedWhen(fn func(*InstallState) bool) inputOption {
	return func(s *InputStep) {
		s.skip = fn
	}
}

func NewInputStep(key, title, placeholder string, opts ...inputOption) *InputStep {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 255
	ti.Width = 40
	ti.Placeholder = placeholder

	s := &InputStep{input: ti, key: key, title: title}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InputStep) Init() tea.Cmd {
	return textinput.Blink
}

func (s *InputStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if s.skip != nil && s.skip(state) {
		return nil, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		value := strings.TrimSpace(s.input.Value())
		if value == "" {
			value = s.fallback
		}
		if s.validate != nil {
			if err := s.validate(value); err != nil {
				s.err = err
				s.input.SetValue("")
				return s, nil
			}
		}
		state.EnvVars[s.key] = value
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *InputStep) View(state *InstallState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n\n%s\n\n", s.title, s.input.View())
	if s.err != nil {
		b.WriteString(errorStyle.Render(s.err.Error()) + "\n\n")
	}
	b.WriteString("(press enter to confirm)\n")
	return b.String()
}

func required(v string) error {
	if v == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}

func validUpdateTime(v string) error {
	_, _, err := (&config.MemoryConfig{UpdateTime: v}).UpdateClock()
	return err
}

func validTimezone(v string) error {
	if _, err := time.LoadLocation(v); err != nil {
		return fmt.Errorf("unknown timezone %q", v)
	}
	return nil
}

func validOwnerID(v string) error {
	if _, err := strconv.ParseInt(v, 10, 64); err != nil {
		return fmt.Errorf("owner id must be a number")
	}
	return nil
}

func telegramNotSelected(s *InstallState) bool {
	return !s.telegramSelected()
}
