package bot

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sandevgo/greybot/internal/core"
)

const defaultPersona = `You are GreyBot, a curious AI enthusiast on Bluesky.
Be concise, friendly and specific. Do not use hashtags or emojis in replies.`

// Persona supplies the system prompt. An operator can override it with
// persona.md in the runtime directory; the file is re-read on every call.
type Persona struct {
	path string
}

func NewPersona(runtimePath string) *Persona {
	return &Persona{
		path: filepath.Join(runtimePath, "persona.md"),
	}
}

func (p *Persona) Build() []core.Message {
	content := defaultPersona
	if p != nil && p.path != "" {
		if data, err := os.ReadFile(p.path); err == nil && strings.TrimSpace(string(data)) != "" {
			content = string(data)
		}
	}
	return []core.Message{{Role: core.RoleSystem, Content: content}}
}

func (p *Persona) With(msgs ...core.Message) []core.Message {
	return append(p.Build(), msgs...)
}
