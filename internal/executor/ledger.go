package executor

import (
	"fmt"
	"sync"

	"predictarb/internal/money"
)

// position tracks one market's simulated holdings inside a DryRunLedger.
type position struct {
	yesShares money.Size
	noShares  money.Size
}

// DryRunLedger is the in-memory simulation backing dry-run mode: each filled
// leg debits balance at its fill price and credits shares. The executor's
// pre-trade checks do not read it: the exposure gate uses the executor's own
// running total, and no check consults the ledger's balance or shares.
type DryRunLedger struct {
	mu        sync.Mutex
	balance   money.Price
	positions map[string]*position
}

func NewDryRunLedger(startingBalance money.Price) *DryRunLedger {
	return &DryRunLedger{
		balance:   startingBalance,
		positions: make(map[string]*position),
	}
}

func (l *DryRunLedger) Balance() money.Price {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

func (l *DryRunLedger) Shares(marketID string, side Side) money.Size {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.positions[marketID]
	if p == nil {
		return money.NewSize("0")
	}
	if side == Yes {
		return p.yesShares
	}
	return p.noShares
}

// ApplyFill debits balance by qty*price and credits qty shares on the given
// side of marketID, simulating a buy fill.
func (l *DryRunLedger) ApplyFill(marketID string, side Side, qty money.Size, price money.Price) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cost := money.PriceFromDecimal(qty.Decimal().Mul(price.Decimal()))
	l.balance = l.balance.Sub(cost)

	p := l.positions[marketID]
	if p == nil {
		p = &position{}
		l.positions[marketID] = p
	}
	if side == Yes {
		p.yesShares = p.yesShares.Add(qty)
	} else {
		p.noShares = p.noShares.Add(qty)
	}
}

// ApplySell credits balance by qty*price and debits qty shares, simulating
// a rebalance sell.
func (l *DryRunLedger) ApplySell(marketID string, side Side, qty money.Size, price money.Price) {
	l.mu.Lock()
	defer l.mu.Unlock()

	proceeds := money.PriceFromDecimal(qty.Decimal().Mul(price.Decimal()))
	l.balance = l.balance.Add(proceeds)

	p := l.positions[marketID]
	if p == nil {
		return
	}
	if side == Yes {
		p.yesShares = p.yesShares.Sub(qty)
	} else {
		p.noShares = p.noShares.Sub(qty)
	}
}

// NetWorth reports balance + yes_shares*fairYes + no_shares*fairNo for
// marketID, the quantity testable property 6 asserts is invariant across a
// filled plan (within rounding) when fair values equal the fill prices used.
func (l *DryRunLedger) NetWorth(marketID string, fairYes, fairNo money.Price) money.Price {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.positions[marketID]
	if p == nil {
		return l.balance
	}
	yesValue := p.yesShares.Decimal().Mul(fairYes.Decimal())
	noValue := p.noShares.Decimal().Mul(fairNo.Decimal())
	total := l.balance.Decimal().Add(yesValue).Add(noValue)
	return money.PriceFromDecimal(total)
}

func (l *DryRunLedger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fmt.Sprintf("balance=%s positions=%d", l.balance.String(), len(l.positions))
}
