// Package health reports broker and AI connectivity for the /health command
// and the startup notification.
package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/broker"
)

// Configured is the slice of the AI client the monitor needs.
type Configured interface {
	Configured() bool
}

// StateInfo reports the last strategy cycle, if any.
type StateInfo interface {
	LastCycle() (time.Time, bool)
}

// Monitor runs the checks.
type Monitor struct {
	provider broker.Provider
	ai       Configured
	state    StateInfo
	sandbox  bool
	log      zerolog.Logger
}

// New creates a Monitor.
func New(provider broker.Provider, ai Configured, state StateInfo, sandbox bool, log zerolog.Logger) *Monitor {
	return &Monitor{
		provider: provider,
		ai:       ai,
		state:    state,
		sandbox:  sandbox,
		log:      log.With().Str("component", "health").Logger(),
	}
}

// Report checks each dependency and renders a one-message summary. A broker
// failure is reported, not fatal: the report itself must always reach the
// user.
func (m *Monitor) Report(ctx context.Context) string {
	var b strings.Builder
	b.WriteString("🩺 *Health*\n")

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	accounts, err := m.provider.Accounts(checkCtx)
	switch {
	case err != nil:
		fmt.Fprintf(&b, "❌ Broker: %v\n", err)
	case len(accounts) == 0:
		b.WriteString("⚠️ Broker: reachable, but no investment accounts\n")
	default:
		env := "real"
		if m.sandbox {
			env = "sandbox"
		}
		fmt.Fprintf(&b, "✅ Broker: %d account(s), %s environment\n", len(accounts), env)
	}

	if m.ai.Configured() {
		b.WriteString("✅ AI: DeepSeek key configured\n")
	} else {
		b.WriteString("❌ AI: no DeepSeek key, strategy cycles will degrade to advisory failures\n")
	}

	if last, ok := m.state.LastCycle(); ok {
		fmt.Fprintf(&b, "🕐 Last strategy cycle: %s ago\n", time.Since(last).Round(time.Second))
	} else {
		b.WriteString("🕐 No strategy cycle recorded yet\n")
	}

	return b.String()
}
