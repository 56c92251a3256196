package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// MoscowLoc is the exchange time zone. MOEX trading hours and all user-facing
// timestamps use it. FixedZone avoids a tzdata dependency on minimal images.
var MoscowLoc = time.FixedZone("MSK", 3*3600)

// Config holds every runtime setting. Loaded once at startup from the
// environment (optionally seeded from a .env file) and treated as read-only
// afterwards.
type Config struct {
	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// T-Bank Invest
	TinkoffToken     string
	TinkoffAccountID string // optional, first account is used when empty
	SandboxMode      bool

	// DeepSeek
	DeepSeekAPIKey string
	DeepSeekAPIURL string
	AITimeout      time.Duration
	AIMaxRetries   int

	// Strategy guardrails
	MaxPositionFraction decimal.Decimal // single order notional ceiling, fraction of valuation
	MarketStalenessMax  time.Duration
	CommissionPct       decimal.Decimal // percent, e.g. 0.05
	MinCommission       decimal.Decimal
	AnalysisCacheTTL    time.Duration // reuse window for a user's last recommendation

	// Automation
	AutoManageSchedule string
	AutoTrading        bool // execute without Telegram confirmation
	ConfirmationTTL    time.Duration

	// Logging
	LogLevel  string
	LogPretty bool

	Version string
}

// secret env vars get a masked startup dump instead of a full one.
var requiredSecrets = []string{
	"TELEGRAM_BOT_TOKEN",
	"TELEGRAM_CHAT_ID",
}

// Load reads the .env file if present and assembles the Config. Missing
// required secrets are fatal: the bot cannot run without its chat and broker
// credentials.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	var missing []string
	for _, key := range requiredSecrets {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}

	sandbox := envBool("TINKOFF_SANDBOX", false)
	token := os.Getenv("TINKOFF_TOKEN")
	if sandbox {
		token = os.Getenv("TINKOFF_TOKEN_SANDBOX")
		if token == "" {
			missing = append(missing, "TINKOFF_TOKEN_SANDBOX")
		}
	} else if token == "" {
		missing = append(missing, "TINKOFF_TOKEN")
	}

	if len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v", missing)
	}

	chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
	if err != nil {
		log.Fatalf("TELEGRAM_CHAT_ID must be a numeric chat id: %v", err)
	}

	cfg := &Config{
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   chatID,
		TinkoffToken:     token,
		TinkoffAccountID: os.Getenv("TINKOFF_ACCOUNT_ID"),
		SandboxMode:      sandbox,

		DeepSeekAPIKey: os.Getenv("DEEPSEEK_API_KEY"),
		DeepSeekAPIURL: envString("DEEPSEEK_API_URL", "https://api.deepseek.com/v1"),
		AITimeout:      time.Duration(envInt("AI_TIMEOUT_SEC", 30)) * time.Second,
		AIMaxRetries:   envInt("AI_MAX_RETRIES", 2),

		MaxPositionFraction: envDecimal("MAX_POSITION_FRACTION", "0.10"),
		MarketStalenessMax:  time.Duration(envInt("MARKET_STALENESS_MAX_SEC", 300)) * time.Second,
		CommissionPct:       envDecimal("BROKER_COMMISSION_PCT", "0.05"),
		MinCommission:       envDecimal("BROKER_MIN_COMMISSION", "1.0"),
		AnalysisCacheTTL:    time.Duration(envInt("ANALYSIS_CACHE_TTL_SEC", 900)) * time.Second,

		AutoManageSchedule: envString("AUTO_MANAGE_SCHEDULE", "@every 1h"),
		AutoTrading:        envString("TRADING_MODE", "manual") == "auto",
		ConfirmationTTL:    time.Duration(envInt("CONFIRMATION_TTL_SEC", 180)) * time.Second,

		LogLevel:  envString("LOG_LEVEL", "info"),
		LogPretty: envBool("LOG_PRETTY", true),

		Version: envString("APP_VERSION", "dev"),
	}

	if cfg.DeepSeekAPIKey == "" {
		log.Println("warning: DEEPSEEK_API_KEY not set, strategy evaluation will return advisory failures")
	}

	dumpEnv()
	return cfg
}

// dumpEnv prints the .env contents with secret values masked to their last
// four characters, so a startup log never leaks credentials.
func dumpEnv() {
	envMap, err := godotenv.Read()
	if err != nil {
		return
	}
	secret := map[string]bool{
		"TELEGRAM_BOT_TOKEN":    true,
		"TINKOFF_TOKEN":         true,
		"TINKOFF_TOKEN_SANDBOX": true,
		"DEEPSEEK_API_KEY":      true,
	}
	log.Println("--- .env ---")
	for key, val := range envMap {
		if secret[key] {
			masked := "***"
			if len(val) > 4 {
				masked = "***" + val[len(val)-4:]
			}
			log.Printf("%s=%s", key, masked)
			continue
		}
		log.Printf("%s=%s", key, val)
	}
	log.Println("------------")
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("warning: %s=%q is not an integer, using %d", key, os.Getenv(key), fallback)
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}

func envDecimal(key, fallback string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
		log.Printf("warning: %s=%q is not a number, using %s", key, os.Getenv(key), fallback)
	}
	return decimal.RequireFromString(fallback)
}
