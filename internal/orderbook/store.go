package orderbook

import (
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"predictarb/internal/money"
)

// shardCount mirrors the teacher's PriceTracker sharding width: enough
// shards that two unrelated hot markets almost never collide, without the
// memory overhead of one mutex per market.
const shardCount = 64

type shard struct {
	mu      sync.RWMutex
	markets map[string]*MarketBook
}

// Store is the sharded order-book state keyed by market_id, guarded
// per shard: readers take short-lived read holds, writers take write
// holds.
type Store struct {
	shards [shardCount]*shard
}

// NewStore builds an empty store.
func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{markets: make(map[string]*MarketBook)}
	}
	return s
}

func (s *Store) shardFor(marketID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(marketID))
	return s.shards[h.Sum32()%shardCount]
}

func (s *Store) getOrCreate(sh *shard, marketID, venue string) *MarketBook {
	mb, ok := sh.markets[marketID]
	if !ok {
		mb = &MarketBook{MarketID: marketID, Venue: venue}
		sh.markets[marketID] = mb
	}
	return mb
}

// Get returns a read-only copy of a market's book: detection takes
// read-only snapshots of BookHalves rather than holding a reference into
// the store.
func (s *Store) Get(marketID string) (MarketBook, bool) {
	sh := s.shardFor(marketID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	mb, ok := sh.markets[marketID]
	if !ok {
		return MarketBook{}, false
	}
	return copyBook(*mb), true
}

func copyBook(mb MarketBook) MarketBook {
	out := mb
	out.Yes.Asks = append([]PriceLevel(nil), mb.Yes.Asks...)
	out.Yes.Bids = append([]PriceLevel(nil), mb.Yes.Bids...)
	out.No.Asks = append([]PriceLevel(nil), mb.No.Asks...)
	out.No.Bids = append([]PriceLevel(nil), mb.No.Bids...)
	return out
}

// Snapshot replaces both ladders of one outcome's half wholesale, after
// sorting and zero-filtering.
func (s *Store) Snapshot(marketID, venue string, outcome Outcome, asks, bids []PriceLevel, venueTS time.Time) {
	sh := s.shardFor(marketID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	mb := s.getOrCreate(sh, marketID, venue)
	half := BookHalf{
		Asks:      sortAndFilter(asks, true),
		Bids:      sortAndFilter(bids, false),
		UpdatedAt: venueTS,
		Stale:     false,
	}
	setHalf(mb, outcome, half)
}

// Delta applies a list of level changes to one outcome's half. If the
// result would cross (best_bid >= best_ask), the whole delta is rejected
// and the half is flagged stale instead of being partially applied. A
// non-crossing delta leaves an existing Stale flag set.
func (s *Store) Delta(marketID, venue string, outcome Outcome, changes []DeltaChange, venueTS time.Time) {
	sh := s.shardFor(marketID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	mb := s.getOrCreate(sh, marketID, venue)
	half := mb.Half(outcome)

	asks := append([]PriceLevel(nil), half.Asks...)
	bids := append([]PriceLevel(nil), half.Bids...)

	for _, c := range changes {
		switch c.Side {
		case Ask:
			asks = applyLevel(asks, c.Price, c.NewSize, true)
		case Bid:
			bids = applyLevel(bids, c.Price, c.NewSize, false)
		}
	}

	if crossed(asks, bids) {
		half.Stale = true
		setHalf(mb, outcome, half)
		return
	}

	half.Asks = asks
	half.Bids = bids
	half.UpdatedAt = venueTS
	setHalf(mb, outcome, half)
}

// TopOfBookOnly records a best-quote-only update for venues that never
// publish depth. A non-crossing update replaces the half wholesale, which
// clears Stale; a crossing one keeps the previous half and flags it stale.
func (s *Store) TopOfBookOnly(marketID, venue string, outcome Outcome, bestAsk, bestBid *PriceLevel, venueTS time.Time) {
	sh := s.shardFor(marketID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	mb := s.getOrCreate(sh, marketID, venue)
	half := BookHalf{UpdatedAt: venueTS}
	if bestAsk != nil && !bestAsk.Size.IsZero() {
		half.Asks = []PriceLevel{*bestAsk}
	}
	if bestBid != nil && !bestBid.Size.IsZero() {
		half.Bids = []PriceLevel{*bestBid}
	}

	if crossed(half.Asks, half.Bids) {
		prev := mb.Half(outcome)
		prev.Stale = true
		setHalf(mb, outcome, prev)
		return
	}
	setHalf(mb, outcome, half)
}

func setHalf(mb *MarketBook, outcome Outcome, half BookHalf) {
	if outcome == Yes {
		mb.Yes = half
	} else {
		mb.No = half
	}
}

// crossed reports whether the best bid is at or above the best ask -
// a book state that is never valid and must be rejected.
func crossed(asks, bids []PriceLevel) bool {
	if len(asks) == 0 || len(bids) == 0 {
		return false
	}
	return bids[0].Price.Cmp(asks[0].Price) >= 0
}

// sortAndFilter drops zero-size levels and sorts ascending (asks) or
// descending (bids), enforcing the book-ordering invariant.
func sortAndFilter(levels []PriceLevel, ascending bool) []PriceLevel {
	out := make([]PriceLevel, 0, len(levels))
	for _, l := range levels {
		if !l.Size.IsZero() {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].Price.LessThan(out[j].Price)
		}
		return out[j].Price.LessThan(out[i].Price)
	})
	return out
}

// applyLevel inserts, updates, or removes a single level while keeping the
// ladder sorted (ascending for asks, descending for bids) and zero-size-free.
func applyLevel(levels []PriceLevel, price money.Price, newSize money.Size, ascending bool) []PriceLevel {
	idx := -1
	for i, l := range levels {
		if l.Price.Equal(price) {
			idx = i
			break
		}
	}

	if newSize.IsZero() {
		if idx >= 0 {
			levels = append(levels[:idx], levels[idx+1:]...)
		}
		return levels
	}

	if idx >= 0 {
		levels[idx].Size = newSize
		return levels
	}

	// Insert keeping sort order.
	insertAt := sort.Search(len(levels), func(i int) bool {
		if ascending {
			return levels[i].Price.GreaterThan(price)
		}
		return levels[i].Price.LessThan(price)
	})
	levels = append(levels, PriceLevel{})
	copy(levels[insertAt+1:], levels[insertAt:])
	levels[insertAt] = PriceLevel{Price: price, Size: newSize}
	return levels
}

// Usable reports whether the named market's book currently satisfies the
// "usable for trading" predicate.
func (s *Store) Usable(marketID string, now time.Time, maxAge time.Duration) bool {
	mb, ok := s.Get(marketID)
	if !ok {
		return false
	}
	return mb.Usable(now, maxAge)
}

// Delete removes a market's book, e.g. once the registry deactivates it.
func (s *Store) Delete(marketID string) {
	sh := s.shardFor(marketID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.markets, marketID)
}
