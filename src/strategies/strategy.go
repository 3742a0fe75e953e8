package strategies

import (
	"time"

	"marketreplay/src/models"
)

type PositionState string

const (
	PositionStateFlat  PositionState = "flat"
	PositionStateLong  PositionState = "long"
	PositionStateShort PositionState = "short"
)

// OrderRequest is a strategy's desired trade: a market order of the given
// quantity, stamped with the timestamp of the tick that produced it.
type OrderRequest struct {
	Symbol    models.Symbol
	Side      models.OrderSide
	Quantity  float64
	Timestamp time.Time
}

// Strategy turns ticks into order requests. OnTick may return nil when no
// action is desired and must never request opposing sides in the same step.
// State transitions happen only in OnFill, on confirmed fills, never on
// submission.
type Strategy interface {
	OnTick(tick models.Tick) *OrderRequest
	OnFill(fill models.Fill, netQuantity float64)
	State() PositionState
}
