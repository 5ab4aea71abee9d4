package executor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"predictarb/internal/money"
)

// Executor runs the trade execution state machine against one VenueClient.
// It is safe for concurrent use by the single executor task (plans are
// expected to arrive off a bounded queue already serialized, but exposure
// accounting and cooldowns are still guarded here).
type Executor struct {
	client VenueClient
	cfg    Config
	log    *zap.Logger
	ledger *DryRunLedger

	mu              sync.Mutex
	totalInvested   money.Price
	cooldownUntil   map[string]time.Time
}

func New(client VenueClient, cfg Config, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Executor{
		client:        client,
		cfg:           cfg,
		log:           log,
		cooldownUntil: make(map[string]time.Time),
	}
	if cfg.DryRun {
		e.ledger = NewDryRunLedger(money.NewPrice("0"))
	}
	return e
}

// SeedDryRunBalance sets the starting balance of the simulated ledger; a
// no-op outside dry-run mode.
func (e *Executor) SeedDryRunBalance(balance money.Price) {
	if e.ledger != nil {
		e.ledger.balance = balance
	}
}

func (e *Executor) Ledger() *DryRunLedger { return e.ledger }

// inCooldown reports whether marketID is still suppressed by the
// post-execution cooldown.
func (e *Executor) inCooldown(marketID string, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	until, ok := e.cooldownUntil[marketID]
	return ok && now.Before(until)
}

func (e *Executor) startCooldown(marketID string, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cooldownUntil[marketID] = now.Add(e.cfg.CooldownSecs)
}

func (e *Executor) reserveExposure(cost money.Price) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cfg.MaxTotalExposure.IsZero() {
		return true
	}
	projected := e.totalInvested.Add(cost)
	if projected.GreaterThan(e.cfg.MaxTotalExposure) {
		return false
	}
	e.totalInvested = projected
	return true
}

// Execute runs one plan through the full state machine: exposure gate,
// cooldown, pre-placement re-check, atomic-or-sequential placement. Once a
// plan has passed the exposure and cooldown gates, the market's cooldown is
// started on every exit.
func (e *Executor) Execute(ctx context.Context, plan TradePlan, now time.Time) (Outcome, error) {
	if !e.reserveExposure(plan.TotalCost) {
		return OutcomeExposureRejected, nil
	}
	if e.inCooldown(plan.MarketID, now) {
		return OutcomeCooldownActive, nil
	}
	defer e.startCooldown(plan.MarketID, now)

	useSequential, firstLeg, outcome, err := e.preCheck(ctx, &plan)
	if outcome != -1 {
		return outcome, err
	}

	if useSequential {
		return e.placeSequential(ctx, plan, firstLeg)
	}
	return e.placeAtomic(ctx, plan)
}

// preCheck refetches both legs' best asks and compares against the
// plan's detection-time prices. Returns (useSequential, firstLeg,
// forcedOutcome, err); forcedOutcome is -1 when placement should proceed.
// firstLeg is the leg with the smaller drift, carrying the wider safety
// margin when placed first.
func (e *Executor) preCheck(ctx context.Context, plan *TradePlan) (bool, Side, Outcome, error) {
	yesAsk, err := e.client.BestAsk(ctx, plan.YesVenue, plan.YesToken)
	if err != nil {
		return false, Yes, OutcomeFailed, err
	}
	noAsk, err := e.client.BestAsk(ctx, plan.NoVenue, plan.NoToken)
	if err != nil {
		return false, Yes, OutcomeFailed, err
	}

	yesDrift := absPrice(yesAsk.Sub(plan.YesFillPrice))
	noDrift := absPrice(noAsk.Sub(plan.NoFillPrice))

	if yesDrift.GreaterThan(e.cfg.SpreadTolerance) || noDrift.GreaterThan(e.cfg.SpreadTolerance) {
		e.log.Info("quote drift exceeds spread tolerance, aborting",
			zap.String("market_id", plan.MarketID),
			zap.String("yes_drift", yesDrift.String()), zap.String("no_drift", noDrift.String()))
		return false, Yes, OutcomeStaleQuote, nil
	}

	useSequential := yesDrift.GreaterThan(e.cfg.PriceMismatchThreshold) || noDrift.GreaterThan(e.cfg.PriceMismatchThreshold)
	firstLeg := Yes
	if noDrift.LessThan(yesDrift) {
		firstLeg = No
	}
	return useSequential, firstLeg, -1, nil
}
