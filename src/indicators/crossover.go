package indicators

import (
	"math"

	"github.com/montanaflynn/stats"

	"marketreplay/src/models"
)

// Crossover is a moving-average-crossover signal generator. It maintains a
// fast and a slow EWMA of close prices and exposes their difference as the
// directional signal.
//
// The signal is computed on whatever history has accumulated so far, even
// before max(fast, slow) observations exist. Early values carry less
// confidence but are not invalid; callers that want a warm-up period gate on
// Count themselves.
type Crossover struct {
	fast   *EWMA
	slow   *EWMA
	closes []float64
}

func (c *Crossover) Update(tick models.Tick) {
	c.fast.Update(tick.Close)
	c.slow.Update(tick.Close)
	c.closes = append(c.closes, tick.Close)
}

// Signal returns the fast EWMA minus the slow EWMA of close prices.
func (c *Crossover) Signal() float64 {
	return c.fast.Value() - c.slow.Value()
}

// Volatility returns the sample standard deviation of close-to-close first
// differences over the last lookback observations. It returns NaN when fewer
// than two observations exist; callers must treat NaN as "no volatility gate
// yet", not as an error.
func (c *Crossover) Volatility(lookback int) float64 {
	window := c.closes
	if lookback > 0 && len(window) > lookback {
		window = window[len(window)-lookback:]
	}

	if len(window) < 2 {
		return math.NaN()
	}

	diffs := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		diffs = append(diffs, window[i]-window[i-1])
	}

	sd, err := stats.StandardDeviationSample(diffs)
	if err != nil {
		return math.NaN()
	}

	return sd
}

func (c *Crossover) Count() int {
	return len(c.closes)
}

func NewCrossover(fastWindow, slowWindow int) *Crossover {
	return &Crossover{
		fast: NewEWMA(fastWindow),
		slow: NewEWMA(slowWindow),
	}
}
