package models

import "time"

// Fill records the execution of an order: price, quantity and the timestamp
// of the tick that matched it.
type Fill struct {
	OrderID   uint      `json:"order_id"`
	Symbol    Symbol    `json:"symbol"`
	Side      OrderSide `json:"side"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// SignedQuantity returns the fill quantity signed by side.
func (f *Fill) SignedQuantity() float64 {
	return f.Quantity * f.Side.Sign()
}
