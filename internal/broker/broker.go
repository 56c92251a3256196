package broker

import (
	"context"
	"fmt"

	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/models"
)

// Provider is the brokerage surface the strategy engine depends on. The
// concrete implementation lives in the tinkoff subpackage; tests use fakes.
type Provider interface {
	// Accounts lists the investment accounts reachable with the configured
	// token.
	Accounts(ctx context.Context) ([]Account, error)

	// Portfolio captures a point-in-time portfolio snapshot for the account.
	Portfolio(ctx context.Context, accountID string) (models.PortfolioSnapshot, error)

	// Market captures last prices for the given tickers.
	Market(ctx context.Context, tickers []string) (models.MarketSnapshot, error)

	// SubmitOrder posts a market order and returns the broker order id.
	SubmitOrder(ctx context.Context, accountID string, intent models.OrderIntent) (string, error)
}

// Account is a brokerage account reference.
type Account struct {
	ID     string
	Name   string
	Status string
}

// ProviderError wraps any upstream data failure: transport, auth, or a
// response that cannot satisfy required fields. It aborts an evaluation cycle
// before any AI call is made.
type ProviderError struct {
	Op  string // the broker operation that failed
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("broker: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError builds a ProviderError for op.
func NewProviderError(op string, err error) *ProviderError {
	return &ProviderError{Op: op, Err: err}
}
