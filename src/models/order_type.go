package models

type OrderType string

const (
	Market OrderType = "market"
)
