package tinkoff

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/broker"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{Token: "t.test", BaseURL: srv.URL}, zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func TestUnitsNano(t *testing.T) {
	assert.Equal(t, "314.25", unitsNano(json.Number("314"), 250000000).String())
	assert.Equal(t, "0.000000001", unitsNano(json.Number("0"), 1).String())
	assert.Equal(t, "-2.5", unitsNano(json.Number("-3"), 500000000).String())
	assert.Equal(t, "10", unitsNano(json.Number("10"), 0).String())
}

func TestPortfolioDecodesProtoJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/tinkoff.public.invest.api.contract.v1.OperationsService/GetPortfolio", r.URL.Path)
		require.Equal(t, "Bearer t.test", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "acc-1", req["accountId"])

		writeJSON(w, `{
			"totalAmountPortfolio": {"currency": "rub", "units": "100000", "nano": 0},
			"totalAmountCurrencies": {"currency": "rub", "units": "25000", "nano": 500000000},
			"positions": [
				{
					"figi": "BBG004730N88",
					"instrumentType": "share",
					"quantity": {"units": "100", "nano": 0},
					"averagePositionPrice": {"currency": "rub", "units": "250", "nano": 0},
					"currentPrice": {"currency": "rub", "units": "300", "nano": 500000000},
					"expectedYield": {"units": "5050", "nano": 0}
				},
				{
					"figi": "RUB000UTSTOM",
					"instrumentType": "currency",
					"quantity": {"units": "25000", "nano": 0},
					"currentPrice": {"currency": "rub", "units": "1", "nano": 0}
				}
			]
		}`)
	})

	snap, err := c.Portfolio(context.Background(), "acc-1")
	require.NoError(t, err)

	assert.Equal(t, "rub", snap.Currency)
	assert.Equal(t, "25000.5", snap.Cash.String())
	assert.Equal(t, "100000", snap.TotalValue.String())
	require.Len(t, snap.Positions, 1, "currency positions are cash, not holdings")

	p := snap.Positions[0]
	assert.Equal(t, "SBER", p.Ticker)
	assert.Equal(t, "Sberbank", p.Name)
	assert.Equal(t, "300.5", p.CurrentPrice.String())
	assert.Equal(t, "30050", p.CurrentValue.String())
}

func TestPortfolioRejectsUnpricedPosition(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{
			"totalAmountPortfolio": {"currency": "rub", "units": "1000", "nano": 0},
			"totalAmountCurrencies": {"currency": "rub", "units": "0", "nano": 0},
			"positions": [
				{"figi": "BBG004730N88", "instrumentType": "share",
				 "quantity": {"units": "10", "nano": 0},
				 "currentPrice": {"currency": "rub", "units": "0", "nano": 0}}
			]
		}`)
	})

	_, err := c.Portfolio(context.Background(), "acc-1")
	var perr *broker.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "no current price")
}

func TestPortfolioRejectsMissingValuation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{
			"totalAmountPortfolio": {"currency": "rub", "units": "0", "nano": 0},
			"totalAmountCurrencies": {"currency": "rub", "units": "0", "nano": 0},
			"positions": [
				{"figi": "BBG004730N88", "instrumentType": "share",
				 "quantity": {"units": "10", "nano": 0},
				 "currentPrice": {"currency": "rub", "units": "300", "nano": 0}}
			]
		}`)
	})

	_, err := c.Portfolio(context.Background(), "acc-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valuation missing")
}

func TestMarketMapsFIGIsBackToTickers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tinkoff.public.invest.api.contract.v1.MarketDataService/GetLastPrices", r.URL.Path)

		var req map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.ElementsMatch(t, []string{"BBG004730N88", "BBG004730RP0"}, req["figi"])

		writeJSON(w, `{"lastPrices": [
			{"figi": "BBG004730N88", "price": {"units": "300", "nano": 0}, "time": "2025-06-02T11:59:00Z"},
			{"figi": "BBG004730RP0", "price": {"units": "150", "nano": 250000000}, "time": "2025-06-02T11:59:00Z"}
		]}`)
	})

	snap, err := c.Market(context.Background(), []string{"SBER", "GAZP"})
	require.NoError(t, err)
	require.Len(t, snap.Quotes, 2)
	assert.Equal(t, "300", snap.Quotes["SBER"].LastPrice.String())
	assert.Equal(t, "150.25", snap.Quotes["GAZP"].LastPrice.String())
}

func TestSandboxUsesSandboxServices(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		writeJSON(w, `{"accounts": [{"id": "sb-1", "name": "sandbox", "status": "ACCOUNT_STATUS_OPEN"}]}`)
	}))
	defer srv.Close()

	c := New(Config{Token: "t.test", Sandbox: true, BaseURL: srv.URL}, zerolog.Nop())
	accounts, err := c.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "sb-1", accounts[0].ID)
	require.Len(t, paths, 1)
	assert.Contains(t, paths[0], "SandboxService/GetSandboxAccounts")
}

func TestSubmitOrderRejection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req postOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ORDER_DIRECTION_SELL", req.Direction)
		assert.Equal(t, "ORDER_TYPE_MARKET", req.OrderType)
		assert.NotEmpty(t, req.OrderID)

		writeJSON(w, `{"orderId": "", "executionReportStatus": "EXECUTION_REPORT_STATUS_REJECTED", "message": "not enough assets"}`)
	})

	_, err := c.SubmitOrder(context.Background(), "acc-1", models.OrderIntent{
		FIGI: "BBG004730N88", Ticker: "SBER", Direction: "sell", Lots: 3,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough assets")
}

func TestAPIErrorSurfacesMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code": 3, "message": "account not found"}`))
	})

	_, err := c.Portfolio(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account not found")
}
