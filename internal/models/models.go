package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mode selects how aggressive the generated strategy should be.
type Mode string

const (
	ModeConservative Mode = "conservative"
	ModeBalanced     Mode = "balanced"
	ModeAggressive   Mode = "aggressive"
)

// ParseMode maps user input to a Mode, defaulting to balanced.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeConservative, ModeBalanced, ModeAggressive:
		return Mode(s)
	}
	return ModeBalanced
}

// Position is a single holding inside a portfolio snapshot.
type Position struct {
	FIGI          string          `json:"figi"`
	Ticker        string          `json:"ticker"`
	Name          string          `json:"name"`
	Type          string          `json:"type"` // share, bond, etf, currency
	Quantity      decimal.Decimal `json:"quantity"`
	AveragePrice  decimal.Decimal `json:"average_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	ExpectedYield decimal.Decimal `json:"expected_yield"`
}

// PortfolioSnapshot is an immutable point-in-time read of the brokerage
// account. One is captured per evaluation cycle and never shared between
// cycles.
type PortfolioSnapshot struct {
	AccountID  string          `json:"account_id"`
	Currency   string          `json:"currency"`
	Positions  []Position      `json:"positions"`
	Cash       decimal.Decimal `json:"cash"`
	TotalValue decimal.Decimal `json:"total_value"`
	CapturedAt time.Time       `json:"captured_at"`
}

// Weight returns the position's share of total valuation, 0..1.
func (s PortfolioSnapshot) Weight(ticker string) decimal.Decimal {
	if s.TotalValue.IsZero() {
		return decimal.Zero
	}
	for _, p := range s.Positions {
		if p.Ticker == ticker {
			return p.CurrentValue.Div(s.TotalValue)
		}
	}
	return decimal.Zero
}

// PositionValue returns the current value held in ticker, zero if absent.
func (s PortfolioSnapshot) PositionValue(ticker string) decimal.Decimal {
	for _, p := range s.Positions {
		if p.Ticker == ticker {
			return p.CurrentValue
		}
	}
	return decimal.Zero
}

// Quote is the latest price for one instrument.
type Quote struct {
	FIGI      string          `json:"figi"`
	Ticker    string          `json:"ticker"`
	LastPrice decimal.Decimal `json:"last_price"`
	ChangePct decimal.Decimal `json:"change_pct"`
	Timestamp time.Time       `json:"timestamp"`
}

// IndexLevel is a market index reading (IMOEX, RTSI).
type IndexLevel struct {
	Name      string          `json:"name"`
	Value     decimal.Decimal `json:"value"`
	ChangePct decimal.Decimal `json:"change_pct"`
}

// MarketSnapshot is an immutable read of market prices for the instruments
// relevant to one evaluation cycle.
type MarketSnapshot struct {
	Quotes     map[string]Quote `json:"quotes"` // keyed by ticker
	Indices    []IndexLevel     `json:"indices,omitempty"`
	CapturedAt time.Time        `json:"captured_at"`
}

// Age reports how old the snapshot is at now.
func (m MarketSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(m.CapturedAt)
}

// Action is the directive variant tag.
type Action string

const (
	ActionHold      Action = "HOLD"
	ActionBuy       Action = "BUY"
	ActionSell      Action = "SELL"
	ActionRebalance Action = "REBALANCE"
)

// Directive is one atomic recommended action parsed out of an AI response.
// Amount is a notional in portfolio currency for Buy/Sell; TargetWeight is
// 0..1 and only meaningful for Rebalance.
type Directive struct {
	Action       Action          `json:"action"`
	Ticker       string          `json:"ticker,omitempty"`
	Amount       decimal.Decimal `json:"amount,omitempty"`
	TargetWeight decimal.Decimal `json:"target_weight,omitempty"`
	Rationale    string          `json:"rationale,omitempty"`
}

// RecommendationResult is what an evaluation cycle always produces, even when
// the AI was unreachable or every directive was rejected.
type RecommendationResult struct {
	UserID      int64       `json:"user_id"`
	Mode        Mode        `json:"mode"`
	Directives  []Directive `json:"directives"`
	Rationale   string      `json:"rationale"`
	Annotations []string    `json:"annotations,omitempty"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// Actionable reports whether any directive would place an order.
func (r RecommendationResult) Actionable() bool {
	for _, d := range r.Directives {
		if d.Action != ActionHold {
			return true
		}
	}
	return false
}

// OrderIntent is a validated directive translated into brokerage-submittable
// order parameters.
type OrderIntent struct {
	FIGI      string          `json:"figi"`
	Ticker    string          `json:"ticker"`
	Direction string          `json:"direction"` // buy, sell
	Lots      int64           `json:"lots"`
	Notional  decimal.Decimal `json:"notional"`
}

// IntentOutcome is the per-instrument result of one order submission.
type IntentOutcome struct {
	Intent    OrderIntent `json:"intent"`
	OrderID   string      `json:"order_id,omitempty"`
	Submitted bool        `json:"submitted"`
	Error     string      `json:"error,omitempty"`
}

// ExecutionReport describes how far a directive batch got. Brokerage orders
// are not revocable by this system, so a partially completed batch is
// reported as-is and never rolled back.
type ExecutionReport struct {
	UserID    int64           `json:"user_id"`
	Outcomes  []IntentOutcome `json:"outcomes"`
	Completed bool            `json:"completed"`
	StoppedAt int             `json:"stopped_at"` // index of the failed intent, -1 when completed
}

// StrategyState records the last applied strategy per user. It is owned by
// the strategy engine and written only after a fully successful cycle.
type StrategyState struct {
	Mode           Mode      `json:"mode"`
	LastCycleAt    time.Time `json:"last_cycle_at"`
	DirectiveCount int       `json:"directive_count"`
}
