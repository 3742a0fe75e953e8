package strategies

import (
	"math"

	"marketreplay/src/indicators"
	"marketreplay/src/models"
)

// MACStrategy trades a moving-average crossover on a single symbol. A signal
// above the volatility threshold requests a market buy of the contract size
// unless already long; a signal below the negative threshold requests a
// market sell unless already short.
type MACStrategy struct {
	symbol             models.Symbol
	signal             *indicators.Crossover
	lookbackIntervals  int
	volatilityFraction float64
	contractSize       float64
	state              PositionState
}

func (s *MACStrategy) OnTick(tick models.Tick) *OrderRequest {
	if tick.Symbol != s.symbol {
		return nil
	}

	s.signal.Update(tick)

	signalValue := s.signal.Signal()

	// With fewer than two observations the volatility is NaN; the gate is
	// simply disabled for that tick rather than treated as an error.
	signalThreshold := 0.0
	if s.volatilityFraction != 0 {
		if volatility := s.signal.Volatility(s.lookbackIntervals); !math.IsNaN(volatility) {
			signalThreshold = s.volatilityFraction * volatility
		}
	}

	if signalValue > signalThreshold && s.state != PositionStateLong {
		return s.marketOrderRequest(tick, models.OrderSideBuy)
	} else if signalValue < -signalThreshold && s.state != PositionStateShort {
		return s.marketOrderRequest(tick, models.OrderSideSell)
	}

	return nil
}

func (s *MACStrategy) marketOrderRequest(tick models.Tick, side models.OrderSide) *OrderRequest {
	return &OrderRequest{
		Symbol:    s.symbol,
		Side:      side,
		Quantity:  s.contractSize,
		Timestamp: tick.Timestamp,
	}
}

func (s *MACStrategy) OnFill(fill models.Fill, netQuantity float64) {
	if fill.Symbol != s.symbol {
		return
	}

	if netQuantity > 0 {
		s.state = PositionStateLong
	} else if netQuantity < 0 {
		s.state = PositionStateShort
	} else {
		s.state = PositionStateFlat
	}
}

func (s *MACStrategy) State() PositionState {
	return s.state
}

func (s *MACStrategy) Symbol() models.Symbol {
	return s.symbol
}

// Signal exposes the underlying crossover, mainly for inspection in tests
// and reporting.
func (s *MACStrategy) Signal() *indicators.Crossover {
	return s.signal
}

func NewMACStrategy(symbol models.Symbol, fastWindow, slowWindow, lookbackIntervals int, volatilityFraction float64, contractSize float64) *MACStrategy {
	return &MACStrategy{
		symbol:             symbol,
		signal:             indicators.NewCrossover(fastWindow, slowWindow),
		lookbackIntervals:  lookbackIntervals,
		volatilityFraction: volatilityFraction,
		contractSize:       contractSize,
		state:              PositionStateFlat,
	}
}
