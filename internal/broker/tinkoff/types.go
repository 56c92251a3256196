package tinkoff

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// The Invest REST gateway follows the proto3 JSON mapping: int64 fields are
// encoded as strings, money as {units, nano} pairs.

type moneyValue struct {
	Currency string      `json:"currency"`
	Units    json.Number `json:"units"`
	Nano     int32       `json:"nano"`
}

type quotation struct {
	Units json.Number `json:"units"`
	Nano  int32       `json:"nano"`
}

var nanoFactor = decimal.New(1, 9)

func unitsNano(units json.Number, nano int32) decimal.Decimal {
	u, err := decimal.NewFromString(units.String())
	if err != nil {
		u = decimal.Zero
	}
	return u.Add(decimal.New(int64(nano), 0).Div(nanoFactor))
}

func (m moneyValue) Decimal() decimal.Decimal { return unitsNano(m.Units, m.Nano) }
func (q quotation) Decimal() decimal.Decimal  { return unitsNano(q.Units, q.Nano) }

type accountsResponse struct {
	Accounts []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"accounts"`
}

type portfolioPosition struct {
	FIGI                 string     `json:"figi"`
	InstrumentType       string     `json:"instrumentType"`
	Quantity             quotation  `json:"quantity"`
	AveragePositionPrice moneyValue `json:"averagePositionPrice"`
	CurrentPrice         moneyValue `json:"currentPrice"`
	ExpectedYield        quotation  `json:"expectedYield"`
}

type portfolioResponse struct {
	TotalAmountPortfolio  moneyValue          `json:"totalAmountPortfolio"`
	TotalAmountCurrencies moneyValue          `json:"totalAmountCurrencies"`
	Positions             []portfolioPosition `json:"positions"`
}

type lastPricesResponse struct {
	LastPrices []struct {
		FIGI  string    `json:"figi"`
		Price quotation `json:"price"`
		Time  time.Time `json:"time"`
	} `json:"lastPrices"`
}

type postOrderRequest struct {
	FIGI      string `json:"figi"`
	Quantity  string `json:"quantity"`
	Direction string `json:"direction"`
	AccountID string `json:"accountId"`
	OrderType string `json:"orderType"`
	OrderID   string `json:"orderId"`
}

type postOrderResponse struct {
	OrderID               string `json:"orderId"`
	ExecutionReportStatus string `json:"executionReportStatus"`
	Message               string `json:"message"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
