package models

import (
	"fmt"
	"time"
)

// Position is the per-symbol ledger: cumulative buy/sell volume, cash and the
// profit and loss derived from them.
//
// RealizedPnL is a snapshot of PositionValue taken each time Net returns to
// exactly zero; between flat points it holds the value as of the last
// net-to-zero event and is not meaningful intra-position. UnrealizedPnL is
// recomputed from the latest close on every mark and is zero whenever the
// position is flat.
type Position struct {
	Symbol        Symbol  `json:"symbol"`
	Buys          float64 `json:"buys"`
	Sells         float64 `json:"sells"`
	Net           float64 `json:"net"`
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	PositionValue float64 `json:"position_value"`
	Cash          float64 `json:"cash"`
	Equity        float64 `json:"equity"`
}

// ApplyFill updates the ledger with a confirmed fill. Cash decreases by the
// notional on buys and increases on sells; a fill that would drive cash below
// zero leaves the ledger untouched and returns ErrInsufficientBalance, which
// callers must treat as fatal for the run.
func (p *Position) ApplyFill(timestamp time.Time, side OrderSide, quantity float64, price float64) error {
	notional := quantity * price

	cash := p.Cash
	if side == OrderSideBuy {
		cash -= notional
	} else {
		cash += notional
	}

	if cash < 0 {
		return fmt.Errorf("%w: %s %.2f %s at %.2f requires %.2f cash, have %.2f",
			ErrInsufficientBalance, side, quantity, p.Symbol, price, notional, p.Cash)
	}

	if side == OrderSideBuy {
		p.Buys += quantity
	} else {
		p.Sells += quantity
	}

	p.Net = p.Buys - p.Sells
	p.Cash = cash
	p.PositionValue -= notional * side.Sign()

	if p.Net == 0 {
		p.RealizedPnL = p.PositionValue
	}

	return nil
}

// MarkToMarket recomputes unrealized P&L and equity from the given close
// price and returns the unrealized P&L. Call once per tick, after all fills
// for that tick have been applied.
func (p *Position) MarkToMarket(price float64) float64 {
	if p.Net == 0 {
		p.UnrealizedPnL = 0
	} else {
		p.UnrealizedPnL = price*p.Net + p.PositionValue
	}

	p.Equity = p.Cash + price*p.Net

	return p.UnrealizedPnL
}

func NewPosition(symbol Symbol, startingCash float64) *Position {
	return &Position{
		Symbol: symbol,
		Cash:   startingCash,
		Equity: startingCash,
	}
}
