package instruments

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupsAgree(t *testing.T) {
	for _, inst := range All() {
		byTicker, ok := ByTicker(inst.Ticker)
		require.True(t, ok, inst.Ticker)
		byFigi, ok := ByFIGI(inst.FIGI)
		require.True(t, ok, inst.FIGI)
		assert.Equal(t, byTicker, byFigi)
		assert.True(t, Known(inst.Ticker))
		assert.Positive(t, inst.Lot)
	}
}

func TestUnknownTicker(t *testing.T) {
	_, ok := ByTicker("AAPL")
	assert.False(t, ok)
	assert.False(t, Known("AAPL"))
	assert.False(t, Known(""))
}

func TestTickersSortedAndUnique(t *testing.T) {
	tickers := Tickers()
	require.NotEmpty(t, tickers)
	assert.True(t, sort.StringsAreSorted(tickers))

	seen := map[string]bool{}
	for _, tk := range tickers {
		assert.False(t, seen[tk], tk)
		seen[tk] = true
	}
}
