package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/ai"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/bot"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/broker/tinkoff"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/config"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/health"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/logger"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/models"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/scheduler"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/storage"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/strategy"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/telegram"
)

func main() {
	cfg := config.Load()

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)
	log.Info().Str("version", cfg.Version).Bool("sandbox", cfg.SandboxMode).
		Bool("auto_trading", cfg.AutoTrading).Msg("starting tbank-deepseek-ai-executor-bot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := tinkoff.New(tinkoff.Config{
		Token:   cfg.TinkoffToken,
		Sandbox: cfg.SandboxMode,
	}, log)

	accountID := cfg.TinkoffAccountID
	if accountID == "" {
		accounts, err := provider.Accounts(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not list broker accounts")
		}
		if len(accounts) == 0 {
			log.Fatal().Msg("broker token has no investment accounts")
		}
		accountID = accounts[0].ID
		log.Info().Str("account", accountID).Str("name", accounts[0].Name).
			Msg("using first broker account")
	}

	aiClient := ai.New(ai.Config{
		APIKey:     cfg.DeepSeekAPIKey,
		APIURL:     cfg.DeepSeekAPIURL,
		Timeout:    cfg.AITimeout,
		MaxRetries: cfg.AIMaxRetries,
	}, log)

	dir := dataDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("could not create state directory")
	}
	statePath := filepath.Join(dir, "strategy_state.json")
	store := storage.New(statePath)
	seed, err := store.Load()
	if err != nil {
		log.Fatal().Err(err).Str("path", statePath).Msg("could not load strategy state")
	}
	states := strategy.NewStateStore(seed, store, log)

	engine := strategy.New(provider, aiClient, states, accountID, strategy.Options{
		MaxPositionFraction: cfg.MaxPositionFraction,
		MarketStalenessMax:  cfg.MarketStalenessMax,
		CommissionPct:       cfg.CommissionPct,
		MinCommission:       cfg.MinCommission,
		AITimeout:           cfg.AITimeout,
		CacheTTL:            cfg.AnalysisCacheTTL,
	}, log)

	tg := telegram.New(cfg.TelegramToken, cfg.TelegramChatID, log)
	monitor := health.New(provider, aiClient, states, cfg.SandboxMode, log)

	dispatcher := bot.New(engine, provider, tg, monitor, bot.Options{
		AccountID:       accountID,
		AutoTrading:     cfg.AutoTrading,
		ConfirmationTTL: cfg.ConfirmationTTL,
		DefaultMode:     models.ModeBalanced,
	}, log)

	sched := scheduler.New(ctx, log)
	if err := sched.AddJob(cfg.AutoManageSchedule, dispatcher); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.AutoManageSchedule).
			Msg("invalid auto-manage schedule")
	}
	sched.Start()

	startup := fmt.Sprintf("🤖 Bot started (v%s).\n\n%s", cfg.Version, monitor.Report(ctx))
	if err := tg.SendMessage(ctx, startup); err != nil {
		log.Warn().Err(err).Msg("could not deliver startup message")
	}

	done := make(chan struct{})
	go func() {
		tg.Listen(ctx, dispatcher.HandleCommand, dispatcher.HandleCallback)
		close(done)
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")
	sched.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("listener did not stop in time")
	}
	log.Info().Msg("bye")
}

// dataDir is where the state file lives, STATE_DIR overrides the default.
func dataDir() string {
	if dir := os.Getenv("STATE_DIR"); dir != "" {
		return dir
	}
	return "data"
}
