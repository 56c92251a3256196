package strategy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/instruments"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/models"
)

const systemPrompt = `You are an experienced portfolio manager for the Russian market (MOEX).
You analyze a brokerage portfolio and current market prices and produce concrete directives.

RULES:
1. Use ONLY tickers from the provided instrument list.
2. Produce at most 5 directives.
3. Amounts are notionals in portfolio currency and must be realistic relative to available cash.
4. Target weights are fractions between 0 and 1 and their sum across REBALANCE directives must not exceed 1.
5. Respond with a single JSON document and nothing else:
{
  "rationale": "overall reasoning, a few sentences",
  "directives": [
    {"action": "BUY|SELL|HOLD|REBALANCE", "ticker": "SBER", "amount": 15000, "target_weight": 0.2, "rationale": "short reason"}
  ]
}
Omit "amount" for HOLD and REBALANCE, omit "target_weight" for everything except REBALANCE.`

var modeGuidance = map[models.Mode]string{
	models.ModeConservative: "Strategy mode: conservative. Prefer HOLD and government bonds, cap any single idea well below the cash balance, avoid high-volatility names.",
	models.ModeBalanced:     "Strategy mode: balanced. Mix dividend shares and bonds, moderate position sizes.",
	models.ModeAggressive:   "Strategy mode: aggressive. Growth names are acceptable, but amounts must still fit available cash.",
}

// BuildPrompt renders the user message for one evaluation cycle: portfolio
// JSON, market JSON, the tradable instrument list and the mode guidance.
func BuildPrompt(portfolio models.PortfolioSnapshot, market models.MarketSnapshot, mode models.Mode) (string, error) {
	portfolioJSON, err := json.MarshalIndent(portfolio, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal portfolio: %w", err)
	}
	marketJSON, err := json.MarshalIndent(market, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal market: %w", err)
	}

	var b strings.Builder
	b.WriteString("PORTFOLIO:\n")
	b.Write(portfolioJSON)
	b.WriteString("\n\nMARKET:\n")
	b.Write(marketJSON)
	b.WriteString("\n\nAVAILABLE INSTRUMENTS:\n")
	for _, inst := range instruments.All() {
		fmt.Fprintf(&b, "- %s: %s (%s, %s)\n", inst.Ticker, inst.Name, inst.Type, inst.Sector)
	}
	b.WriteString("\n")
	b.WriteString(modeGuidance[mode])
	b.WriteString("\n\nGenerate the directives JSON now.")
	return b.String(), nil
}
