package models

import "time"

type Symbol string

func (s Symbol) String() string {
	return string(s)
}

// Tick is a single price observation for a symbol. Ticks are immutable once
// created and are delivered to the engine in strictly increasing timestamp
// order.
type Tick struct {
	Symbol    Symbol
	Timestamp time.Time
	Open      float64
	Close     float64
	Volume    float64
}
