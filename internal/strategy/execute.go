package strategy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/instruments"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/models"
)

// ApplyDirectives translates the accepted directives into order intents and
// submits them sequentially. The first submission failure stops the batch;
// already-submitted orders are not revocable, so the report carries partial
// completion instead of a rollback. Hold directives produce no order.
func (e *Engine) ApplyDirectives(ctx context.Context, userID int64, result models.RecommendationResult) (models.ExecutionReport, error) {
	report := models.ExecutionReport{UserID: userID, Completed: true, StoppedAt: -1}

	if !result.Actionable() {
		return report, nil
	}

	// Fresh snapshots: prices may have moved since evaluation, and rebalance
	// deltas need the current book.
	portfolio, err := e.provider.Portfolio(ctx, e.accountID)
	if err != nil {
		return report, err
	}
	market, err := e.provider.Market(ctx, instruments.Tickers())
	if err != nil {
		return report, err
	}

	for _, d := range result.Directives {
		if d.Action == models.ActionHold {
			continue
		}

		intent, err := buildIntent(d, portfolio, market)
		if err != nil {
			// A directive that cannot become an order (sub-lot amount,
			// missing quote) is recorded and skipped; it is not a submission
			// failure and does not stop the batch.
			report.Outcomes = append(report.Outcomes, models.IntentOutcome{
				Intent: models.OrderIntent{Ticker: d.Ticker},
				Error:  err.Error(),
			})
			continue
		}

		orderID, err := e.provider.SubmitOrder(ctx, e.accountID, intent)
		if err != nil {
			report.Outcomes = append(report.Outcomes, models.IntentOutcome{
				Intent: intent,
				Error:  err.Error(),
			})
			report.Completed = false
			report.StoppedAt = len(report.Outcomes) - 1
			e.log.Error().Err(err).Str("ticker", intent.Ticker).Msg("order submission failed, halting batch")
			return report, nil
		}

		report.Outcomes = append(report.Outcomes, models.IntentOutcome{
			Intent:    intent,
			OrderID:   orderID,
			Submitted: true,
		})
	}

	return report, nil
}

// buildIntent converts one directive to brokerage order parameters. Rebalance
// becomes a buy or sell of the value delta between the target weight and the
// current position.
func buildIntent(d models.Directive, portfolio models.PortfolioSnapshot, market models.MarketSnapshot) (models.OrderIntent, error) {
	inst, ok := instruments.ByTicker(d.Ticker)
	if !ok {
		return models.OrderIntent{}, fmt.Errorf("unknown instrument %q", d.Ticker)
	}
	quote, ok := market.Quotes[d.Ticker]
	if !ok {
		return models.OrderIntent{}, fmt.Errorf("no quote for %s", d.Ticker)
	}

	var direction string
	var notional decimal.Decimal

	switch d.Action {
	case models.ActionBuy:
		direction, notional = "buy", d.Amount
	case models.ActionSell:
		direction, notional = "sell", d.Amount
	case models.ActionRebalance:
		target := portfolio.TotalValue.Mul(d.TargetWeight)
		delta := target.Sub(portfolio.PositionValue(d.Ticker))
		if delta.IsPositive() {
			direction, notional = "buy", delta
		} else {
			direction, notional = "sell", delta.Neg()
		}
	default:
		return models.OrderIntent{}, fmt.Errorf("directive %s produces no order", d.Action)
	}

	lotPrice := quote.LastPrice.Mul(decimal.NewFromInt(inst.Lot))
	lots := notional.Div(lotPrice).IntPart()
	if lots < 1 {
		return models.OrderIntent{}, fmt.Errorf("%s %s: notional %s is below one lot (%s)",
			direction, d.Ticker, notional.StringFixed(2), lotPrice.StringFixed(2))
	}

	return models.OrderIntent{
		FIGI:      inst.FIGI,
		Ticker:    d.Ticker,
		Direction: direction,
		Lots:      lots,
		Notional:  lotPrice.Mul(decimal.NewFromInt(lots)),
	}, nil
}
