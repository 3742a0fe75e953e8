package backtest

import (
	"fmt"

	"marketreplay/src/models"
)

// OrderBook holds pending market orders and matches them against incoming
// ticks. An order is eligible only on a tick whose timestamp is strictly
// greater than its create date, which enforces the minimum one-step
// execution delay: an order submitted on tick T fills no earlier than T+1.
//
// Eligible orders fill unconditionally at the current tick's open price, for
// their full quantity, in submission order.
type OrderBook struct {
	pending []*models.Order
}

func (b *OrderBook) Submit(order *models.Order) {
	b.pending = append(b.pending, order)
}

func (b *OrderBook) PendingOrders() []*models.Order {
	return b.pending
}

// Match fills every eligible pending order against the tick and removes it
// from the pending set. Unmatched orders remain queued for future ticks.
func (b *OrderBook) Match(tick models.Tick) ([]*models.Fill, error) {
	if len(b.pending) == 0 {
		return nil, nil
	}

	var fills []*models.Fill
	unmatched := make([]*models.Order, 0, len(b.pending))

	for _, order := range b.pending {
		if order.Symbol != tick.Symbol || !tick.Timestamp.After(order.CreateDate) {
			unmatched = append(unmatched, order)
			continue
		}

		fill, err := order.Fill(tick.Timestamp, tick.Open)
		if err != nil {
			return nil, fmt.Errorf("error matching order %d: %w", order.ID, err)
		}

		fills = append(fills, fill)
	}

	b.pending = unmatched

	return fills, nil
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		pending: make([]*models.Order, 0),
	}
}
