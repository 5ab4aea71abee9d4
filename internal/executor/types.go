// Package executor implements the trade executor state machine:
// pre-placement re-check, atomic-vs-sequential two-leg placement, fill
// verification, cancel-on-timeout, and balance-capped rebalance.
package executor

import (
	"context"
	"time"

	"predictarb/internal/money"
)

// Side is which leg of a two-leg plan an order belongs to.
type Side int

const (
	Yes Side = iota
	No
)

func (s Side) String() string {
	if s == Yes {
		return "yes"
	}
	return "no"
}

// OrderStatus mirrors the venue-reported lifecycle of one placed order.
type OrderStatus int

const (
	StatusPlaced OrderStatus = iota
	StatusFilled
	StatusPartiallyFilled
	StatusCancelled
	StatusFailed
)

// Outcome is the structured result of one execution attempt: each outcome is
// an explicit result with a documented failure kind, rather than an error
// the caller has to pattern-match.
type Outcome int

const (
	OutcomeFilled Outcome = iota
	OutcomeNoFill
	OutcomeRebalanceNeeded
	OutcomeStaleQuote
	OutcomeExposureRejected
	OutcomeCooldownActive
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFilled:
		return "filled"
	case OutcomeNoFill:
		return "no_fill"
	case OutcomeRebalanceNeeded:
		return "rebalance_needed"
	case OutcomeStaleQuote:
		return "stale_quote"
	case OutcomeExposureRejected:
		return "exposure_rejected"
	case OutcomeCooldownActive:
		return "cooldown_active"
	default:
		return "failed"
	}
}

// TradePlan is the sizer's output translated into order parameters.
// Invariant: YesQty == NoQty (equal legs guarantee a $1 payout regardless of
// outcome).
type TradePlan struct {
	MarketID string

	YesVenue string
	NoVenue  string
	YesToken string
	NoToken  string

	YesQty  money.Size
	NoQty   money.Size

	YesFillPrice money.Price
	NoFillPrice  money.Price
	YesFee       money.Price
	NoFee        money.Price

	TotalCost         money.Price
	ExpectedNetProfit money.Price
}

// OrderResult is what a venue reports back for a placed order.
type OrderResult struct {
	OrderID     string
	MatchedSize money.Size
	Status      OrderStatus
}

// VenueClient is the executor's view of a venue: placement, cancellation,
// fill query, and balance, kept transport-free so the state machine is
// testable against a fake.
type VenueClient interface {
	PlaceLimit(ctx context.Context, venue, token string, qty money.Size, price money.Price, side Side) (orderID string, err error)
	Cancel(ctx context.Context, venue, orderID string) error
	GetOrder(ctx context.Context, venue, orderID string) (matchedSize money.Size, status OrderStatus, err error)
	PlaceMarket(ctx context.Context, venue, token string, qty money.Size, side Side) (OrderResult, error)
	Balance(ctx context.Context, venue, token string) (money.Size, error)
	BestAsk(ctx context.Context, venue, token string) (money.Price, error)
}

// Config carries the executor's thresholds, threaded explicitly per call
// rather than held as package-level state.
type Config struct {
	MinProfitAbsolute      money.Price
	PriceMismatchThreshold money.Price
	SpreadTolerance        money.Price
	SequentialPollInterval time.Duration
	SequentialPollTimeout  time.Duration
	CancelTimeout          time.Duration
	SettlingWindow         time.Duration
	MaxTotalExposure       money.Price // zero means unbounded
	CooldownSecs           time.Duration
	DryRun                 bool
	MinShareFloor          money.Size // optional, zero by default; Execute does not read it
}

func absPrice(p money.Price) money.Price {
	if p.IsNegative() {
		return money.PriceFromDecimal(p.Decimal().Neg())
	}
	return p
}
