package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/models"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// applyGuardrails bounds the parsed directives against the snapshots. Checks
// run in a fixed order: staleness first (it invalidates everything), then the
// aggregate rebalance weight, then per-directive notional and cash bounds.
// Guardrail outcomes downgrade or drop individual directives and annotate the
// result; they never abort the cycle.
func (e *Engine) applyGuardrails(result *models.RecommendationResult, portfolio models.PortfolioSnapshot, market models.MarketSnapshot) {
	now := e.now()

	if age := market.Age(now); age > e.opts.MarketStalenessMax {
		for i := range result.Directives {
			result.Directives[i].Action = models.ActionHold
			result.Directives[i].Amount = decimal.Zero
			result.Directives[i].TargetWeight = decimal.Zero
		}
		result.Annotations = append(result.Annotations,
			fmt.Sprintf("market snapshot is stale (age %s, limit %s): all directives downgraded to HOLD",
				age.Round(0), e.opts.MarketStalenessMax))
		return
	}

	e.checkRebalanceWeights(result)
	e.checkPositionCeiling(result, portfolio)
	e.checkCashSufficiency(result, portfolio)
}

// checkRebalanceWeights rejects every Rebalance directive when the target
// weights sum past 1.0. Renormalizing would rebalance by the wrong amounts,
// which is worse than doing nothing, so the whole group fails closed.
func (e *Engine) checkRebalanceWeights(result *models.RecommendationResult) {
	sum := decimal.Zero
	for _, d := range result.Directives {
		if d.Action == models.ActionRebalance {
			sum = sum.Add(d.TargetWeight)
		}
	}
	if sum.LessThanOrEqual(one) {
		return
	}

	kept := result.Directives[:0]
	for _, d := range result.Directives {
		if d.Action == models.ActionRebalance {
			d.Action = models.ActionHold
			d.TargetWeight = decimal.Zero
		}
		kept = append(kept, d)
	}
	result.Directives = kept
	result.Annotations = append(result.Annotations,
		fmt.Sprintf("rebalance target weights sum to %s (> 1.0): all rebalance directives rejected", sum))
}

// checkPositionCeiling caps any single Buy/Sell notional at the configured
// fraction of total portfolio valuation.
func (e *Engine) checkPositionCeiling(result *models.RecommendationResult, portfolio models.PortfolioSnapshot) {
	ceiling := portfolio.TotalValue.Mul(e.opts.MaxPositionFraction)
	for i, d := range result.Directives {
		if d.Action != models.ActionBuy && d.Action != models.ActionSell {
			continue
		}
		if d.Amount.LessThanOrEqual(ceiling) {
			continue
		}
		result.Directives[i].Amount = ceiling
		result.Annotations = append(result.Annotations,
			fmt.Sprintf("%s %s capped from %s to %s (position ceiling %s%% of %s)",
				d.Action, d.Ticker, d.Amount.StringFixed(2), ceiling.StringFixed(2),
				e.opts.MaxPositionFraction.Mul(hundred), portfolio.TotalValue.StringFixed(2)))
	}
}

// checkCashSufficiency walks Buy directives in order, deducting each accepted
// cost from the remaining cash. A buy the cash cannot cover is downgraded to
// the maximum affordable amount rather than rejected; when nothing is
// affordable it becomes a Hold.
func (e *Engine) checkCashSufficiency(result *models.RecommendationResult, portfolio models.PortfolioSnapshot) {
	remaining := portfolio.Cash
	for i, d := range result.Directives {
		if d.Action != models.ActionBuy {
			continue
		}

		cost := d.Amount.Add(e.commission(d.Amount))
		if cost.LessThanOrEqual(remaining) {
			remaining = remaining.Sub(cost)
			continue
		}

		affordable := e.maxAffordable(remaining)
		if affordable.IsPositive() {
			result.Annotations = append(result.Annotations,
				fmt.Sprintf("BUY %s downgraded from %s to affordable %s (cash %s)",
					d.Ticker, d.Amount.StringFixed(2), affordable.StringFixed(2), remaining.StringFixed(2)))
			result.Directives[i].Amount = affordable
			remaining = remaining.Sub(affordable.Add(e.commission(affordable)))
			continue
		}

		result.Annotations = append(result.Annotations,
			fmt.Sprintf("BUY %s downgraded to HOLD: insufficient cash (%s)", d.Ticker, remaining.StringFixed(2)))
		result.Directives[i].Action = models.ActionHold
		result.Directives[i].Amount = decimal.Zero
	}
}

// commission models the broker fee for a notional: a percentage with a floor.
func (e *Engine) commission(amount decimal.Decimal) decimal.Decimal {
	fee := amount.Mul(e.opts.CommissionPct).Div(hundred)
	if fee.LessThan(e.opts.MinCommission) {
		return e.opts.MinCommission
	}
	return fee
}

// maxAffordable returns the largest notional whose cost (notional plus
// commission) fits the cash balance. Zero when even the minimum commission
// does not fit.
func (e *Engine) maxAffordable(cash decimal.Decimal) decimal.Decimal {
	if cash.LessThanOrEqual(e.opts.MinCommission) {
		return decimal.Zero
	}

	// Assume the percentage fee first; fall back to the flat floor when the
	// percentage on the result would be under the minimum.
	pctFrac := e.opts.CommissionPct.Div(hundred)
	amount := cash.Div(one.Add(pctFrac)).RoundDown(2)
	if amount.Mul(pctFrac).LessThan(e.opts.MinCommission) {
		amount = cash.Sub(e.opts.MinCommission).RoundDown(2)
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}
