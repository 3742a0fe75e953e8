package models

import "fmt"

var (
	ErrInsufficientBalance    = fmt.Errorf("insufficient balance")
	ErrUnknownSymbol          = fmt.Errorf("unknown symbol")
	ErrInvalidOrderVolumeZero = fmt.Errorf("invalid order volume: quantity must be greater than 0")
)
