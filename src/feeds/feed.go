package feeds

import (
	"fmt"
	"math"

	"marketreplay/src/models"
)

var (
	ErrTimestampsOutOfOrder = fmt.Errorf("tick timestamps must be strictly increasing")
	ErrNonFinitePrice       = fmt.Errorf("tick prices must be finite")
)

// TickFeed replays a chronologically ordered tick sequence one tick at a
// time. Next returns false once the sequence is exhausted.
type TickFeed interface {
	Symbol() models.Symbol
	Next() (models.Tick, bool)
}

// SliceFeed replays an in-memory tick slice.
type SliceFeed struct {
	symbol models.Symbol
	ticks  []models.Tick
	index  int
}

func (f *SliceFeed) Symbol() models.Symbol {
	return f.symbol
}

func (f *SliceFeed) Next() (models.Tick, bool) {
	if f.index >= len(f.ticks) {
		return models.Tick{}, false
	}

	tick := f.ticks[f.index]
	f.index++

	return tick, true
}

func (f *SliceFeed) Len() int {
	return len(f.ticks)
}

// validateTicks enforces the ingestion contract: strictly increasing
// timestamps and finite prices. Malformed input is rejected here, before it
// ever reaches the simulation loop.
func validateTicks(ticks []models.Tick) error {
	for i, tick := range ticks {
		if !isFinite(tick.Open) || !isFinite(tick.Close) {
			return fmt.Errorf("%w: tick %d (%s)", ErrNonFinitePrice, i, tick.Timestamp)
		}

		if i > 0 && !tick.Timestamp.After(ticks[i-1].Timestamp) {
			return fmt.Errorf("%w: tick %d (%s) does not follow %s",
				ErrTimestampsOutOfOrder, i, tick.Timestamp, ticks[i-1].Timestamp)
		}
	}

	return nil
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

func NewSliceFeed(symbol models.Symbol, ticks []models.Tick) (*SliceFeed, error) {
	if err := validateTicks(ticks); err != nil {
		return nil, err
	}

	return &SliceFeed{
		symbol: symbol,
		ticks:  ticks,
	}, nil
}
