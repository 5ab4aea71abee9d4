// Package registry tracks the set of active markets across venues: identity,
// expiry, token routing for the full-depth reducer, and cross-venue matches,
// refreshed wholesale from a discovery collaborator.
package registry

import (
	"sort"
	"sync/atomic"
	"time"

	"predictarb/internal/money"
	"predictarb/internal/orderbook"
)

// Market is one discovered binary-outcome market.
type Market struct {
	ID          string
	Venue       string
	ConditionID string
	Asset       string
	Timeframe   string
	YesToken    string
	NoToken     string
	EndTime     time.Time
	Active      bool
	FeeRate     money.Price
}

type tokenKey struct {
	venue, token string
}

// snapshot is the immutable data a refresh swaps in as a whole; readers
// never see a partially-built one because it is only ever replaced by
// atomic.Value.Store, never mutated.
type snapshot struct {
	byID          map[string]*Market
	byVenueCond   map[string]*Market // venue|condition_id -> market
	byToken       map[tokenKey]struct {
		marketID string
		outcome  orderbook.Outcome
	}
	matches map[string]string // condition_id -> matched condition_id, both directions
}

func emptySnapshot() *snapshot {
	return &snapshot{
		byID:        make(map[string]*Market),
		byVenueCond: make(map[string]*Market),
		byToken: make(map[tokenKey]struct {
			marketID string
			outcome  orderbook.Outcome
		}),
		matches: make(map[string]string),
	}
}

func venueCondKey(venue, conditionID string) string { return venue + "|" + conditionID }

// Registry is the copy-on-refresh market directory: readers hold an
// immutable snapshot; a refresh swaps in a new one atomically.
type Registry struct {
	v atomic.Value // *snapshot
}

func New() *Registry {
	r := &Registry{}
	r.v.Store(emptySnapshot())
	return r
}

func (r *Registry) current() *snapshot {
	return r.v.Load().(*snapshot)
}

// Refresh rebuilds the registry wholesale from a freshly discovered market
// list and a set of cross-venue condition-id pairings, then swaps the new
// state in with a single atomic store. Markets with EndTime before now are
// recorded inactive (the "deactivate expired markets" bulk transition
// happens here, in memory; the persistence layer mirrors it to storage
// separately).
func (r *Registry) Refresh(markets []Market, matchedPairs [][2]string, now time.Time) {
	next := emptySnapshot()

	for i := range markets {
		m := markets[i]
		if !m.EndTime.After(now) {
			m.Active = false
		}
		mc := m
		next.byID[mc.ID] = &mc
		next.byVenueCond[venueCondKey(mc.Venue, mc.ConditionID)] = &mc
		if mc.YesToken != "" {
			next.byToken[tokenKey{mc.Venue, mc.YesToken}] = struct {
				marketID string
				outcome  orderbook.Outcome
			}{mc.ID, orderbook.Yes}
		}
		if mc.NoToken != "" {
			next.byToken[tokenKey{mc.Venue, mc.NoToken}] = struct {
				marketID string
				outcome  orderbook.Outcome
			}{mc.ID, orderbook.No}
		}
	}

	for _, pair := range matchedPairs {
		next.matches[pair[0]] = pair[1]
		next.matches[pair[1]] = pair[0]
	}

	r.v.Store(next)
}

// ActiveMarkets returns active markets on venue expiring within horizon of
// now, sorted by end_time ascending and capped to limit.
func (r *Registry) ActiveMarkets(venue string, now time.Time, horizon time.Duration, limit int) []Market {
	snap := r.current()
	out := make([]Market, 0, len(snap.byID))
	for _, m := range snap.byID {
		if !m.Active {
			continue
		}
		if venue != "" && m.Venue != venue {
			continue
		}
		if m.EndTime.Before(now) || m.EndTime.After(now.Add(horizon)) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TokenToMarket implements venue.TokenResolver.
func (r *Registry) TokenToMarket(venue, tokenID string) (string, orderbook.Outcome, bool) {
	snap := r.current()
	v, ok := snap.byToken[tokenKey{venue, tokenID}]
	if !ok {
		return "", 0, false
	}
	return v.marketID, v.outcome, true
}

// ByVenueCondition looks a market up by its identity key.
func (r *Registry) ByVenueCondition(venue, conditionID string) (Market, bool) {
	snap := r.current()
	m, ok := snap.byVenueCond[venueCondKey(venue, conditionID)]
	if !ok {
		return Market{}, false
	}
	return *m, true
}

// ByID looks a market up by its internal id.
func (r *Registry) ByID(id string) (Market, bool) {
	snap := r.current()
	m, ok := snap.byID[id]
	if !ok {
		return Market{}, false
	}
	return *m, true
}

// Match returns the market matched (by the external matcher) to
// conditionID, if any.
func (r *Registry) Match(conditionID string) (string, bool) {
	snap := r.current()
	other, ok := snap.matches[conditionID]
	return other, ok
}

// MatchedMarket resolves a matched condition id to its full Market record on
// the given venue.
func (r *Registry) MatchedMarket(venue, matchedConditionID string) (Market, bool) {
	return r.ByVenueCondition(venue, matchedConditionID)
}
