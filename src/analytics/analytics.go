// Package analytics computes aggregate statistics from a finished equity
// series. It is a consumer of the engine's output, not part of the
// simulation loop.
package analytics

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"marketreplay/src/backtest"
)

type Summary struct {
	StartEquity  float64
	EndEquity    float64
	TotalReturn  float64
	SharpeRatio  float64
	MaxDrawdown  float64
	Observations int
}

// Returns computes simple period-over-period returns of the equity series.
func Returns(equity *backtest.Series) []float64 {
	values := equity.Values()

	returns := make([]float64, 0, len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}

		returns = append(returns, values[i]/values[i-1]-1)
	}

	return returns
}

// SharpeRatio is the annualized mean-over-stddev of the period returns,
// assuming a zero risk-free rate.
func SharpeRatio(returns []float64, periodsPerYear float64) (float64, error) {
	if len(returns) < 2 {
		return 0, fmt.Errorf("at least 2 returns are required, got %d", len(returns))
	}

	mean, err := stats.Mean(returns)
	if err != nil {
		return 0, fmt.Errorf("error computing mean: %w", err)
	}

	sd, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return 0, fmt.Errorf("error computing standard deviation: %w", err)
	}

	if sd == 0 {
		return 0, nil
	}

	return mean / sd * math.Sqrt(periodsPerYear), nil
}

// MaxDrawdown returns the largest peak-to-trough decline of the equity
// series as a positive fraction of the peak.
func MaxDrawdown(equity *backtest.Series) float64 {
	peak := math.Inf(-1)
	maxDrawdown := 0.0

	for _, sample := range equity.Samples {
		if sample.Value > peak {
			peak = sample.Value
		}

		if peak > 0 {
			drawdown := (peak - sample.Value) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return maxDrawdown
}

// Summarize derives the run summary from the equity series. PeriodsPerYear
// annualizes the Sharpe ratio; pass 252 for daily bars.
func Summarize(equity *backtest.Series, periodsPerYear float64) (Summary, error) {
	if equity.Len() == 0 {
		return Summary{}, fmt.Errorf("equity series is empty")
	}

	startEquity := equity.Samples[0].Value
	endEquity := equity.Samples[equity.Len()-1].Value

	totalReturn := 0.0
	if startEquity != 0 {
		totalReturn = endEquity/startEquity - 1
	}

	sharpe := 0.0
	if returns := Returns(equity); len(returns) >= 2 {
		var err error
		sharpe, err = SharpeRatio(returns, periodsPerYear)
		if err != nil {
			return Summary{}, err
		}
	}

	return Summary{
		StartEquity:  startEquity,
		EndEquity:    endEquity,
		TotalReturn:  totalReturn,
		SharpeRatio:  sharpe,
		MaxDrawdown:  MaxDrawdown(equity),
		Observations: equity.Len(),
	}, nil
}
