package models

import (
	"fmt"
	"time"
)

// Order is a request to trade a fixed quantity at market. An order becomes
// eligible for matching strictly after its create date and is filled exactly
// once, for its full quantity. Partial fills and cancellation are not
// supported.
type Order struct {
	ID             uint      `json:"id"`
	Type           OrderType `json:"type"`
	Symbol         Symbol    `json:"symbol"`
	Side           OrderSide `json:"side"`
	Quantity       float64   `json:"quantity"`
	CreateDate     time.Time `json:"create_date"`
	IsFilled       bool      `json:"is_filled"`
	FilledPrice    float64   `json:"filled_price"`
	FilledTime     time.Time `json:"filled_time"`
	FilledQuantity float64   `json:"filled_quantity"`
}

// GetQuantity returns the order quantity signed by side: positive for buys,
// negative for sells.
func (o *Order) GetQuantity() float64 {
	return o.Quantity * o.Side.Sign()
}

// Fill marks the order filled at the given price and returns the resulting
// fill record.
func (o *Order) Fill(timestamp time.Time, price float64) (*Fill, error) {
	if o.IsFilled {
		return nil, fmt.Errorf("order %d is already filled", o.ID)
	}

	if price <= 0 {
		return nil, fmt.Errorf("fill price must be greater than 0")
	}

	o.IsFilled = true
	o.FilledPrice = price
	o.FilledTime = timestamp
	o.FilledQuantity = o.Quantity

	return &Fill{
		OrderID:   o.ID,
		Symbol:    o.Symbol,
		Side:      o.Side,
		Quantity:  o.Quantity,
		Price:     price,
		Timestamp: timestamp,
	}, nil
}

func NewOrder(id uint, createDate time.Time, symbol Symbol, side OrderSide, quantity float64) *Order {
	return &Order{
		ID:         id,
		Type:       Market,
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		CreateDate: createDate,
	}
}
