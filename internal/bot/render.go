package bot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/config"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/models"
)

var hundredPct = decimal.NewFromInt(100)

const helpText = `Commands:
/portfolio — current holdings and cash
/analyze [mode] — AI commentary, no orders
/auto [mode] — AI cycle with execution (confirmed or automatic)
/mode <conservative|balanced|aggressive> — default strategy mode
/health — broker and AI connectivity
/stop | /resume — autonomous execution kill-switch`

func renderPortfolio(s models.PortfolioSnapshot) string {
	var b strings.Builder
	b.WriteString("📊 *Portfolio*\n")
	fmt.Fprintf(&b, "💼 Total: %s %s\n", s.TotalValue.StringFixed(2), strings.ToUpper(s.Currency))
	fmt.Fprintf(&b, "💳 Cash: %s\n\n", s.Cash.StringFixed(2))

	if len(s.Positions) == 0 {
		b.WriteString("No open positions.\n")
	}
	for _, p := range s.Positions {
		yield := p.ExpectedYield.StringFixed(2)
		if !p.ExpectedYield.IsNegative() {
			yield = "+" + yield
		}
		fmt.Fprintf(&b, "• %s (%s): %s × %s = %s (%s)\n",
			p.Name, p.Ticker, p.Quantity.String(), p.CurrentPrice.StringFixed(2),
			p.CurrentValue.StringFixed(2), yield)
	}
	fmt.Fprintf(&b, "\n_Captured %s MSK_", s.CapturedAt.In(config.MoscowLoc).Format("2006-01-02 15:04:05"))
	return b.String()
}

func renderResult(r models.RecommendationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🤖 *Strategy (%s)*\n\n", r.Mode)

	if len(r.Directives) == 0 {
		b.WriteString("No directives.\n")
	}
	for _, d := range r.Directives {
		switch d.Action {
		case models.ActionHold:
			if d.Ticker != "" {
				fmt.Fprintf(&b, "• HOLD %s", d.Ticker)
			} else {
				b.WriteString("• HOLD")
			}
		case models.ActionBuy, models.ActionSell:
			fmt.Fprintf(&b, "• %s %s for %s", d.Action, d.Ticker, d.Amount.StringFixed(2))
		case models.ActionRebalance:
			fmt.Fprintf(&b, "• REBALANCE %s to %s%%", d.Ticker, d.TargetWeight.Mul(hundredPct).StringFixed(1))
		}
		if d.Rationale != "" {
			fmt.Fprintf(&b, " — %s", d.Rationale)
		}
		b.WriteString("\n")
	}

	if len(r.Annotations) > 0 {
		b.WriteString("\n⚠️ *Guardrails:*\n")
		for _, a := range r.Annotations {
			fmt.Fprintf(&b, "• %s\n", a)
		}
	}

	if r.Rationale != "" {
		fmt.Fprintf(&b, "\n_%s_", truncate(r.Rationale, 1500))
	}
	return b.String()
}

// renderReport lists each order outcome on its own line; a halted batch says
// so explicitly instead of collapsing into one opaque error.
func renderReport(rep models.ExecutionReport) string {
	var b strings.Builder
	b.WriteString("📋 *Execution report*\n")

	if len(rep.Outcomes) == 0 {
		b.WriteString("No orders to place.")
		return b.String()
	}
	for _, o := range rep.Outcomes {
		if o.Submitted {
			fmt.Fprintf(&b, "✅ %s %s × %d lots (order %s)\n",
				strings.ToUpper(o.Intent.Direction), o.Intent.Ticker, o.Intent.Lots, o.OrderID)
			continue
		}
		fmt.Fprintf(&b, "❌ %s: %s\n", o.Intent.Ticker, o.Error)
	}
	if !rep.Completed {
		b.WriteString("\n🚨 Batch halted at the failed order. Earlier orders stand; review the account before retrying.")
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
