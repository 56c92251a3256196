// Package tinkoff implements broker.Provider over the T-Bank Invest public
// REST API.
package tinkoff

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/broker"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/instruments"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/models"
)

const (
	baseURL     = "https://invest-public-api.tinkoff.ru/rest"
	servicePath = "/tinkoff.public.invest.api.contract.v1."
)

// Client talks to the Invest REST gateway. With Sandbox enabled the sandbox
// service set is used for accounts, portfolio and orders; market data is
// shared between the two environments.
type Client struct {
	http    *resty.Client
	sandbox bool
	log     zerolog.Logger
}

// Config for the Invest client.
type Config struct {
	Token   string
	Sandbox bool
	Timeout time.Duration
	BaseURL string // defaults to the public gateway
}

// New creates a Client.
func New(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	base := cfg.BaseURL
	if base == "" {
		base = baseURL
	}

	http := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetAuthToken(cfg.Token).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:    http,
		sandbox: cfg.Sandbox,
		log:     log.With().Str("component", "tinkoff").Bool("sandbox", cfg.Sandbox).Logger(),
	}
}

// call posts one service method. Every Invest REST call is a POST with a JSON
// body, including reads.
func (c *Client) call(ctx context.Context, service, method string, req, resp any) error {
	var apiErr apiError
	r, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(resp).
		SetError(&apiErr).
		Post(servicePath + service + "/" + method)
	if err != nil {
		return err
	}
	if r.IsError() {
		if apiErr.Message != "" {
			return fmt.Errorf("%s/%s: %s (code %d)", service, method, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("%s/%s: status %s", service, method, r.Status())
	}
	return nil
}

// Accounts implements broker.Provider.
func (c *Client) Accounts(ctx context.Context) ([]broker.Account, error) {
	service, method := "UsersService", "GetAccounts"
	if c.sandbox {
		service, method = "SandboxService", "GetSandboxAccounts"
	}

	var resp accountsResponse
	if err := c.call(ctx, service, method, map[string]any{}, &resp); err != nil {
		return nil, broker.NewProviderError("accounts", err)
	}

	out := make([]broker.Account, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		out = append(out, broker.Account{ID: a.ID, Name: a.Name, Status: a.Status})
	}
	return out, nil
}

// Portfolio implements broker.Provider. Positions with a zero current price
// are a hard failure: the engine cannot validate directives against an
// unpriced book.
func (c *Client) Portfolio(ctx context.Context, accountID string) (models.PortfolioSnapshot, error) {
	service, method := "OperationsService", "GetPortfolio"
	if c.sandbox {
		service, method = "SandboxService", "GetSandboxPortfolio"
	}

	var resp portfolioResponse
	req := map[string]string{"accountId": accountID}
	if err := c.call(ctx, service, method, req, &resp); err != nil {
		return models.PortfolioSnapshot{}, broker.NewProviderError("portfolio", err)
	}

	snap := models.PortfolioSnapshot{
		AccountID:  accountID,
		Currency:   resp.TotalAmountPortfolio.Currency,
		Cash:       resp.TotalAmountCurrencies.Decimal(),
		TotalValue: resp.TotalAmountPortfolio.Decimal(),
		CapturedAt: time.Now(),
	}
	if snap.Currency == "" {
		snap.Currency = "rub"
	}
	if snap.TotalValue.IsZero() && len(resp.Positions) > 0 {
		return models.PortfolioSnapshot{}, broker.NewProviderError("portfolio",
			fmt.Errorf("account %s: positions present but total valuation missing", accountID))
	}

	for _, p := range resp.Positions {
		if p.InstrumentType == "currency" {
			continue // cash is already in TotalAmountCurrencies
		}
		price := p.CurrentPrice.Decimal()
		qty := p.Quantity.Decimal()
		if price.IsZero() {
			return models.PortfolioSnapshot{}, broker.NewProviderError("portfolio",
				fmt.Errorf("position %s has no current price", p.FIGI))
		}

		pos := models.Position{
			FIGI:          p.FIGI,
			Type:          p.InstrumentType,
			Quantity:      qty,
			AveragePrice:  p.AveragePositionPrice.Decimal(),
			CurrentPrice:  price,
			CurrentValue:  price.Mul(qty),
			ExpectedYield: p.ExpectedYield.Decimal(),
		}
		if inst, ok := instruments.ByFIGI(p.FIGI); ok {
			pos.Ticker = inst.Ticker
			pos.Name = inst.Name
		} else {
			pos.Ticker = p.FIGI
		}
		snap.Positions = append(snap.Positions, pos)
	}

	c.log.Debug().
		Str("account", accountID).
		Int("positions", len(snap.Positions)).
		Str("total", snap.TotalValue.StringFixed(2)).
		Msg("portfolio snapshot captured")
	return snap, nil
}

// Market implements broker.Provider. Unknown tickers are skipped; a price
// missing for a requested known ticker is a failure.
func (c *Client) Market(ctx context.Context, tickers []string) (models.MarketSnapshot, error) {
	figis := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if inst, ok := instruments.ByTicker(t); ok {
			figis = append(figis, inst.FIGI)
		}
	}
	if len(figis) == 0 {
		return models.MarketSnapshot{}, broker.NewProviderError("market",
			fmt.Errorf("no known instruments among %v", tickers))
	}

	var resp lastPricesResponse
	req := map[string]any{"figi": figis}
	if err := c.call(ctx, "MarketDataService", "GetLastPrices", req, &resp); err != nil {
		return models.MarketSnapshot{}, broker.NewProviderError("market", err)
	}

	snap := models.MarketSnapshot{
		Quotes:     make(map[string]models.Quote, len(resp.LastPrices)),
		CapturedAt: time.Now(),
	}
	for _, lp := range resp.LastPrices {
		price := lp.Price.Decimal()
		if price.IsZero() {
			return models.MarketSnapshot{}, broker.NewProviderError("market",
				fmt.Errorf("no last price for %s", lp.FIGI))
		}
		quote := models.Quote{
			FIGI:      lp.FIGI,
			LastPrice: price,
			Timestamp: lp.Time,
		}
		if inst, ok := instruments.ByFIGI(lp.FIGI); ok {
			quote.Ticker = inst.Ticker
		} else {
			quote.Ticker = lp.FIGI
		}
		snap.Quotes[quote.Ticker] = quote
	}
	return snap, nil
}

// SubmitOrder implements broker.Provider. Orders are market orders; the
// generated order id makes retries idempotent on the broker side.
func (c *Client) SubmitOrder(ctx context.Context, accountID string, intent models.OrderIntent) (string, error) {
	service := "OrdersService"
	method := "PostOrder"
	if c.sandbox {
		service, method = "SandboxService", "PostSandboxOrder"
	}

	direction := "ORDER_DIRECTION_BUY"
	if intent.Direction == "sell" {
		direction = "ORDER_DIRECTION_SELL"
	}

	req := postOrderRequest{
		FIGI:      intent.FIGI,
		Quantity:  fmt.Sprintf("%d", intent.Lots),
		Direction: direction,
		AccountID: accountID,
		OrderType: "ORDER_TYPE_MARKET",
		OrderID:   uuid.NewString(),
	}

	var resp postOrderResponse
	if err := c.call(ctx, service, method, req, &resp); err != nil {
		return "", broker.NewProviderError("order", err)
	}
	if resp.ExecutionReportStatus == "EXECUTION_REPORT_STATUS_REJECTED" {
		return "", broker.NewProviderError("order", fmt.Errorf("rejected: %s", resp.Message))
	}

	c.log.Info().
		Str("ticker", intent.Ticker).
		Str("direction", intent.Direction).
		Int64("lots", intent.Lots).
		Str("order_id", resp.OrderID).
		Msg("order submitted")
	return resp.OrderID, nil
}
