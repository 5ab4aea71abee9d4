// Package orderbook reconstructs per-market YES/NO order books from venue
// updates and stores them behind sharded locks (one per group of markets
// hashed to the same shard), so that one hot market's writes rarely stall a
// reader working an unrelated market.
package orderbook

import (
	"time"

	"predictarb/internal/money"
)

// Outcome is which side of a binary market a book half belongs to.
type Outcome int

const (
	Yes Outcome = iota
	No
)

func (o Outcome) String() string {
	if o == Yes {
		return "YES"
	}
	return "NO"
}

// Side distinguishes the ask ladder from the bid ladder within a BookHalf.
type Side int

const (
	Ask Side = iota
	Bid
)

// PriceLevel is one resting order-book level.
type PriceLevel struct {
	Price money.Price
	Size  money.Size
}

// DeltaChange is one line of a venue delta message: a new size at a price on
// a given side. NewSize of zero means "remove this level".
type DeltaChange struct {
	Side    Side
	Price   money.Price
	NewSize money.Size
}

// BookHalf is one outcome's ask/bid ladders.
type BookHalf struct {
	Asks      []PriceLevel
	Bids      []PriceLevel
	UpdatedAt time.Time
	// Stale is set when an apply would have produced a crossed book
	// (best_bid >= best_ask). A Delta never clears it; it is cleared by the
	// next successful Snapshot apply, or by a non-crossing TopOfBookOnly
	// update, which replaces the whole half.
	Stale bool
}

// BestAsk returns the lowest ask, if any.
func (h BookHalf) BestAsk() (PriceLevel, bool) {
	if len(h.Asks) == 0 {
		return PriceLevel{}, false
	}
	return h.Asks[0], true
}

// BestBid returns the highest bid, if any.
func (h BookHalf) BestBid() (PriceLevel, bool) {
	if len(h.Bids) == 0 {
		return PriceLevel{}, false
	}
	return h.Bids[0], true
}

// HasDepth reports whether the half has any resting liquidity at all.
func (h BookHalf) HasDepth() bool {
	return len(h.Asks) > 0 || len(h.Bids) > 0
}

// Fresh reports whether the half was updated within maxAge of now.
func (h BookHalf) Fresh(now time.Time, maxAge time.Duration) bool {
	if h.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(h.UpdatedAt) <= maxAge
}

// MarketBook is a single market's YES and NO book halves.
type MarketBook struct {
	MarketID string
	Venue    string
	Yes      BookHalf
	No       BookHalf
}

// Usable implements the "usable for trading" predicate: both halves
// must have non-empty ask depth (asks are what spread/cross-venue arb buys
// against), be fresh, and carry no staleness flag.
func (mb MarketBook) Usable(now time.Time, maxAge time.Duration) bool {
	if mb.Yes.Stale || mb.No.Stale {
		return false
	}
	if len(mb.Yes.Asks) == 0 || len(mb.No.Asks) == 0 {
		return false
	}
	if !mb.Yes.Fresh(now, maxAge) || !mb.No.Fresh(now, maxAge) {
		return false
	}
	return true
}

// Half returns the requested outcome's book half.
func (mb MarketBook) Half(o Outcome) BookHalf {
	if o == Yes {
		return mb.Yes
	}
	return mb.No
}
