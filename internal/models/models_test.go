package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeConservative, ParseMode("conservative"))
	assert.Equal(t, ModeAggressive, ParseMode("aggressive"))
	assert.Equal(t, ModeBalanced, ParseMode("balanced"))
	assert.Equal(t, ModeBalanced, ParseMode(""))
	assert.Equal(t, ModeBalanced, ParseMode("reckless"))
}

func TestPortfolioWeight(t *testing.T) {
	s := PortfolioSnapshot{
		TotalValue: decimal.NewFromInt(100000),
		Positions: []Position{
			{Ticker: "SBER", CurrentValue: decimal.NewFromInt(30000)},
		},
	}
	assert.Equal(t, "0.3", s.Weight("SBER").String())
	assert.True(t, s.Weight("GAZP").IsZero())

	empty := PortfolioSnapshot{}
	assert.True(t, empty.Weight("SBER").IsZero(), "zero valuation must not divide")
}

func TestMarketSnapshotAge(t *testing.T) {
	now := time.Now()
	m := MarketSnapshot{CapturedAt: now.Add(-3 * time.Minute)}
	assert.InDelta(t, float64(3*time.Minute), float64(m.Age(now)), float64(time.Second))
}

func TestActionable(t *testing.T) {
	hold := RecommendationResult{Directives: []Directive{{Action: ActionHold}}}
	assert.False(t, hold.Actionable())
	assert.False(t, RecommendationResult{}.Actionable())

	buy := RecommendationResult{Directives: []Directive{{Action: ActionHold}, {Action: ActionBuy}}}
	assert.True(t, buy.Actionable())
}
