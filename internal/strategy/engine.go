// Package strategy implements the evaluation cycle: snapshot the portfolio
// and market, ask the AI for directives, bound them with guardrails, and
// either report or execute.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/ai"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/broker"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/instruments"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/models"
)

// Completer is the reasoning service surface the engine needs. Satisfied by
// *ai.Client; tests script it.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, system, user string) (string, error)
}

// Options are the engine's guardrail and policy knobs.
type Options struct {
	MaxPositionFraction decimal.Decimal // single-order notional ceiling, fraction of valuation
	MarketStalenessMax  time.Duration
	CommissionPct       decimal.Decimal // percent
	MinCommission       decimal.Decimal
	AITimeout           time.Duration
	CacheTTL            time.Duration // reuse window for a user's last result, 0 disables
}

// Engine runs evaluation cycles. One engine serves all users; cycles for the
// same user are serialized, different users proceed independently.
type Engine struct {
	provider broker.Provider
	ai       Completer
	store    *StateStore
	opts     Options
	log      zerolog.Logger

	accountID string

	mu      sync.Mutex
	locks   map[int64]*sync.Mutex // per-user cycle locks
	results map[int64]models.RecommendationResult

	now func() time.Time
}

// New creates an Engine.
func New(provider broker.Provider, completer Completer, store *StateStore, accountID string, opts Options, log zerolog.Logger) *Engine {
	return &Engine{
		provider:  provider,
		ai:        completer,
		store:     store,
		opts:      opts,
		accountID: accountID,
		locks:     make(map[int64]*sync.Mutex),
		results:   make(map[int64]models.RecommendationResult),
		log:       log.With().Str("component", "strategy").Logger(),
		now:       time.Now,
	}
}

func (e *Engine) userLock(userID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[userID] = lock
	}
	return lock
}

// Evaluate runs one full cycle for the user and always returns a usable
// result: when the AI is unreachable the result carries zero directives and a
// rationale naming the failure. Only snapshot acquisition errors propagate,
// since the cycle cannot proceed without valid input.
func (e *Engine) Evaluate(ctx context.Context, userID int64, mode models.Mode) (models.RecommendationResult, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	// A fresh enough result for the same mode is reused instead of burning
	// another AI round trip.
	if cached, ok := e.cachedResult(userID, mode); ok {
		e.log.Info().Int64("user", userID).Time("generated_at", cached.GeneratedAt).
			Msg("reusing recent recommendation")
		return cached, nil
	}

	result := models.RecommendationResult{
		UserID:      userID,
		Mode:        mode,
		GeneratedAt: e.now(),
	}

	// Fetching: the two snapshot reads are independent.
	portfolio, market, err := e.fetchSnapshots(ctx)
	if err != nil {
		return result, err
	}

	// Requesting.
	raw, err := e.request(ctx, portfolio, market, mode)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) || errors.Is(err, ai.ErrNotConfigured) {
			result.Rationale = fmt.Sprintf("Recommendation service unavailable: %v. No directives generated.", err)
			e.log.Warn().Err(err).Int64("user", userID).Msg("evaluation degraded to advisory failure")
			return result, nil
		}
		// Context cancellation from the caller side behaves the same way: the
		// user still gets an explained empty result and state stays untouched.
		result.Rationale = fmt.Sprintf("Recommendation request aborted: %v.", err)
		return result, nil
	}

	// Parsing: malformed entries are dropped, the rationale survives.
	directives, rationale := Parse(raw)
	result.Directives = directives
	result.Rationale = rationale

	// Validating.
	e.applyGuardrails(&result, portfolio, market)

	// Side effects only after the whole cycle validated.
	e.store.Set(userID, models.StrategyState{
		Mode:           mode,
		LastCycleAt:    e.now(),
		DirectiveCount: len(result.Directives),
	})
	e.mu.Lock()
	e.results[userID] = result
	e.mu.Unlock()

	e.log.Info().
		Int64("user", userID).
		Str("mode", string(mode)).
		Int("directives", len(result.Directives)).
		Int("annotations", len(result.Annotations)).
		Msg("evaluation cycle complete")
	return result, nil
}

func (e *Engine) fetchSnapshots(ctx context.Context) (models.PortfolioSnapshot, models.MarketSnapshot, error) {
	var (
		wg        sync.WaitGroup
		portfolio models.PortfolioSnapshot
		market    models.MarketSnapshot
		pErr      error
		mErr      error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		portfolio, pErr = e.provider.Portfolio(ctx, e.accountID)
	}()
	go func() {
		defer wg.Done()
		market, mErr = e.provider.Market(ctx, instruments.Tickers())
	}()
	wg.Wait()

	if pErr != nil {
		return portfolio, market, pErr
	}
	if mErr != nil {
		return portfolio, market, mErr
	}
	return portfolio, market, nil
}

func (e *Engine) request(ctx context.Context, portfolio models.PortfolioSnapshot, market models.MarketSnapshot, mode models.Mode) (string, error) {
	callCtx := ctx
	if e.opts.AITimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.opts.AITimeout)
		defer cancel()
	}
	user, err := BuildPrompt(portfolio, market, mode)
	if err != nil {
		return "", err
	}
	return e.ai.Complete(callCtx, systemPrompt, user)
}

// cachedResult returns the user's last result when it was produced for the
// same mode within the cache window. Degraded results (AI unreachable) never
// land in the cache: they skip the state write.
func (e *Engine) cachedResult(userID int64, mode models.Mode) (models.RecommendationResult, bool) {
	if e.opts.CacheTTL <= 0 {
		return models.RecommendationResult{}, false
	}
	state, ok := e.store.Get(userID)
	if !ok || state.Mode != mode {
		return models.RecommendationResult{}, false
	}
	if e.now().Sub(state.LastCycleAt) > e.opts.CacheTTL {
		return models.RecommendationResult{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	cached, ok := e.results[userID]
	return cached, ok
}

// State returns the last recorded strategy state for the user.
func (e *Engine) State(userID int64) (models.StrategyState, bool) {
	return e.store.Get(userID)
}
