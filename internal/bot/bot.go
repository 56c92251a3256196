// Package bot routes Telegram commands to the strategy engine and renders
// the results. It owns the confirmation flow for manual trading mode and the
// autonomy kill-switch.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/broker"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/health"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/models"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/strategy"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/telegram"
)

// Options configure the dispatcher.
type Options struct {
	AccountID       string
	AutoTrading     bool
	ConfirmationTTL time.Duration
	DefaultMode     models.Mode
}

type pendingExecution struct {
	result    models.RecommendationResult
	createdAt time.Time
}

// Dispatcher binds commands and callbacks to the engine.
type Dispatcher struct {
	engine   *strategy.Engine
	provider broker.Provider
	tg       *telegram.Client
	health   *health.Monitor
	opts     Options
	log      zerolog.Logger

	mu          sync.Mutex
	pending     map[string]pendingExecution
	defaultMode models.Mode
	autonomy    bool
}

// New creates a Dispatcher. Autonomy starts enabled; /stop disables it.
func New(engine *strategy.Engine, provider broker.Provider, tg *telegram.Client, monitor *health.Monitor, opts Options, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		engine:      engine,
		provider:    provider,
		tg:          tg,
		health:      monitor,
		opts:        opts,
		pending:     make(map[string]pendingExecution),
		defaultMode: opts.DefaultMode,
		autonomy:    true,
		log:         log.With().Str("component", "bot").Logger(),
	}
}

// AutonomyEnabled reports the kill-switch state.
func (d *Dispatcher) AutonomyEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.autonomy
}

// DefaultMode returns the mode used when a command omits one.
func (d *Dispatcher) DefaultMode() models.Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.defaultMode
}

// HandleCommand implements telegram.CommandHandler.
func (d *Dispatcher) HandleCommand(ctx context.Context, command string, args []string) string {
	switch command {
	case "/start":
		return "Investment advisor online.\n" + helpText
	case "/help":
		return helpText
	case "/portfolio":
		return d.portfolio(ctx)
	case "/analyze":
		return d.analyze(ctx, args)
	case "/auto":
		return d.auto(ctx, args)
	case "/mode":
		return d.setMode(args)
	case "/health":
		return d.health.Report(ctx)
	case "/stop":
		d.mu.Lock()
		d.autonomy = false
		d.mu.Unlock()
		return "🛑 Autonomous execution disabled. /resume to re-enable."
	case "/resume":
		d.mu.Lock()
		d.autonomy = true
		d.mu.Unlock()
		return "✅ Autonomous execution enabled."
	}
	return "Unknown command. " + helpText
}

func (d *Dispatcher) portfolio(ctx context.Context) string {
	snap, err := d.provider.Portfolio(ctx, d.opts.AccountID)
	if err != nil {
		return fmt.Sprintf("⚠️ Could not fetch portfolio: %v", err)
	}
	return renderPortfolio(snap)
}

func (d *Dispatcher) analyze(ctx context.Context, args []string) string {
	mode := d.DefaultMode()
	if len(args) > 0 {
		mode = models.ParseMode(args[0])
	}

	result, err := d.engine.Evaluate(ctx, d.tg.ChatID(), mode)
	if err != nil {
		return fmt.Sprintf("⚠️ Evaluation aborted: %v", err)
	}
	return renderResult(result)
}

// auto runs a cycle and either executes directly (auto trading mode) or asks
// for confirmation with inline buttons.
func (d *Dispatcher) auto(ctx context.Context, args []string) string {
	mode := d.DefaultMode()
	if len(args) > 0 {
		mode = models.ParseMode(args[0])
	}

	result, err := d.engine.Evaluate(ctx, d.tg.ChatID(), mode)
	if err != nil {
		return fmt.Sprintf("⚠️ Evaluation aborted: %v", err)
	}
	if !result.Actionable() {
		return renderResult(result) + "\n\nNothing to execute."
	}

	if d.opts.AutoTrading {
		report, err := d.engine.ApplyDirectives(ctx, d.tg.ChatID(), result)
		if err != nil {
			return fmt.Sprintf("⚠️ Execution aborted before any order: %v", err)
		}
		return renderResult(result) + "\n\n" + renderReport(report)
	}

	token := d.storePending(result)
	buttons := []telegram.Button{
		{Text: "✅ EXECUTE", CallbackData: "EXEC_" + token},
		{Text: "❌ DISMISS", CallbackData: "DISMISS_" + token},
	}
	text := renderResult(result) + fmt.Sprintf("\n\n⏱ Confirm within %s.", d.opts.ConfirmationTTL)
	if err := d.tg.SendKeyboard(ctx, text, buttons); err != nil {
		d.log.Error().Err(err).Msg("failed to send confirmation keyboard")
		return "⚠️ Could not send the confirmation prompt."
	}
	return ""
}

// Name identifies the dispatcher as a scheduled job.
func (d *Dispatcher) Name() string { return "auto-manage" }

// Run executes one scheduled strategy cycle. The /stop kill switch turns the
// run into a no-op without unregistering the schedule.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.AutonomyEnabled() {
		d.log.Info().Msg("autonomy disabled, scheduled cycle skipped")
		return nil
	}
	if reply := d.auto(ctx, nil); reply != "" {
		return d.tg.SendMessage(ctx, reply)
	}
	return nil
}

// HandleCallback implements telegram.CallbackHandler.
func (d *Dispatcher) HandleCallback(ctx context.Context, data string) string {
	switch {
	case strings.HasPrefix(data, "EXEC_"):
		token := strings.TrimPrefix(data, "EXEC_")
		result, ok := d.takePending(token)
		if !ok {
			return "Confirmation expired, run /auto again."
		}
		report, err := d.engine.ApplyDirectives(ctx, d.tg.ChatID(), result)
		if err != nil {
			return fmt.Sprintf("⚠️ Execution aborted before any order: %v", err)
		}
		return renderReport(report)

	case strings.HasPrefix(data, "DISMISS_"):
		d.takePending(strings.TrimPrefix(data, "DISMISS_"))
		return "Dismissed, no orders placed."
	}
	return ""
}

func (d *Dispatcher) setMode(args []string) string {
	if len(args) == 0 {
		return fmt.Sprintf("Current mode: %s. Usage: /mode conservative|balanced|aggressive", d.DefaultMode())
	}
	mode := models.ParseMode(args[0])
	d.mu.Lock()
	d.defaultMode = mode
	d.mu.Unlock()
	return fmt.Sprintf("Strategy mode set to %s.", mode)
}

func (d *Dispatcher) storePending(result models.RecommendationResult) string {
	token := uuid.NewString()
	d.mu.Lock()
	d.pending[token] = pendingExecution{result: result, createdAt: time.Now()}
	d.sweepPendingLocked()
	d.mu.Unlock()
	return token
}

func (d *Dispatcher) takePending(token string) (models.RecommendationResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepPendingLocked()
	p, ok := d.pending[token]
	if ok {
		delete(d.pending, token)
	}
	return p.result, ok
}

// sweepPendingLocked drops confirmations past their TTL so ignored prompts
// cannot be executed later.
func (d *Dispatcher) sweepPendingLocked() {
	for token, p := range d.pending {
		if time.Since(p.createdAt) > d.opts.ConfirmationTTL {
			delete(d.pending, token)
		}
	}
}
