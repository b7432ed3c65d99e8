package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/greybot/internal/service/gate"
	"github.com/sandevgo/greybot/internal/service/memory"
	"github.com/sandevgo/greybot/internal/service/used"
)

type memoryCounter interface {
	Count(ctx context.Context) (int, error)
}

type usedSizer interface {
	Sizes() map[used.Kind]int
}

// Monitor reports bot health to the operator and lets them schedule a
// memory rebuild.
type Monitor struct {
	gate   *gate.Controller
	memory memoryCounter
	used   usedSizer
	handle string
}

func NewMonitor(g *gate.Controller, memory memoryCounter, used usedSizer, handle string) *Monitor {
	return &Monitor{gate: g, memory: memory, used: used, handle: handle}
}

func (m *Monitor) Status(ctx context.Context) (string, error) {
	count, err := m.memory.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to count memories: %w", err)
	}

	last := "never"
	if t := m.gate.LastUpdate(); !t.IsZero() {
		last = t.Format(time.RFC3339)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**@%s**\n\n", m.handle)
	fmt.Fprintf(&b, "- state: `%s`\n", m.gate.State())
	fmt.Fprintf(&b, "- memories: %d\n", count)
	fmt.Fprintf(&b, "- last update: %s\n", last)
	fmt.Fprintf(&b, "- failures: %d\n", m.gate.Failures())
	if m.used != nil {
		sizes := m.used.Sizes()
		fmt.Fprintf(&b, "- used: %d posts, %d topics, %d memes\n",
			sizes[used.KindPosts], sizes[used.KindTopics], sizes[used.KindMemes])
	}
	return b.String(), nil
}

// RequestUpdate latches the force-stop so the runner rebuilds memory on its
// next tick.
func (m *Monitor) RequestUpdate(ctx context.Context) error {
	if m.gate.State() == gate.Updating {
		return memory.ErrUpdateRunning
	}
	m.gate.RequestForceStop()
	return nil
}
