package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketreplay/src/feeds"
	"marketreplay/src/models"
	"marketreplay/src/strategies"
)

const symbol = models.Symbol("X")

// scriptedStrategy issues fixed requests on scripted tick indexes and tracks
// state from fills like any other strategy.
type scriptedStrategy struct {
	script   map[int]models.OrderSide
	quantity float64

	tickCount int
	state     strategies.PositionState
}

func (s *scriptedStrategy) OnTick(tick models.Tick) *strategies.OrderRequest {
	defer func() { s.tickCount++ }()

	side, ok := s.script[s.tickCount]
	if !ok {
		return nil
	}

	return &strategies.OrderRequest{
		Symbol:    tick.Symbol,
		Side:      side,
		Quantity:  s.quantity,
		Timestamp: tick.Timestamp,
	}
}

func (s *scriptedStrategy) OnFill(fill models.Fill, netQuantity float64) {
	if netQuantity > 0 {
		s.state = strategies.PositionStateLong
	} else if netQuantity < 0 {
		s.state = strategies.PositionStateShort
	} else {
		s.state = strategies.PositionStateFlat
	}
}

func (s *scriptedStrategy) State() strategies.PositionState {
	return s.state
}

func testTicks(prices ...[2]float64) []models.Tick {
	start := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)

	ticks := make([]models.Tick, 0, len(prices))
	for i, price := range prices {
		ticks = append(ticks, models.Tick{
			Symbol:    symbol,
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      price[0],
			Close:     price[1],
		})
	}

	return ticks
}

func testConfig() Config {
	config := DefaultConfig()
	config.Symbol = string(symbol)

	return config
}

func TestEngineStep(t *testing.T) {
	t.Run("buy at the first tick fills at the second tick's open", func(t *testing.T) {
		ticks := testTicks([2]float64{100, 100}, [2]float64{101, 105}, [2]float64{104, 103})

		strategy := &scriptedStrategy{script: map[int]models.OrderSide{0: models.OrderSideBuy}, quantity: 100}
		engine, err := NewBacktest(symbol, strategy, testConfig())
		require.NoError(t, err)

		// t1: the order is submitted but cannot fill yet
		require.NoError(t, engine.HandleTick(ticks[0]))
		require.Len(t, engine.PendingOrders(), 1)
		_, err = engine.GetPosition(symbol)
		assert.Error(t, err)

		// t2: the order fills at the open, 101
		require.NoError(t, engine.HandleTick(ticks[1]))
		require.Len(t, engine.PendingOrders(), 0)

		position, err := engine.GetPosition(symbol)
		require.NoError(t, err)
		assert.Equal(t, 100.0, position.Net)
		assert.Equal(t, 1_000_000.0-10_100.0, position.Cash)
		assert.Equal(t, 0.0, position.RealizedPnL)
		assert.Equal(t, strategies.PositionStateLong, strategy.State())

		// t3: mark-to-market against the close, 103
		require.NoError(t, engine.HandleTick(ticks[2]))

		position, err = engine.GetPosition(symbol)
		require.NoError(t, err)
		assert.Equal(t, 103.0*100.0-10_100.0, position.UnrealizedPnL)
		assert.Equal(t, 0.0, position.RealizedPnL)
		assert.Equal(t, position.Cash+103.0*100.0, position.Equity)
	})

	t.Run("output series grow by at most one sample per tick", func(t *testing.T) {
		ticks := testTicks([2]float64{100, 100}, [2]float64{101, 105}, [2]float64{104, 103})

		strategy := &scriptedStrategy{script: map[int]models.OrderSide{0: models.OrderSideBuy}, quantity: 100}
		engine, err := NewBacktest(symbol, strategy, testConfig())
		require.NoError(t, err)

		for _, tick := range ticks {
			require.NoError(t, engine.HandleTick(tick))
		}

		// the ledger exists from the fill at t2 onwards
		assert.Equal(t, 1, engine.RealizedPnL.Len())
		assert.Equal(t, 2, engine.UnrealizedPnL.Len())
		assert.Equal(t, 2, engine.EquityCurve.Len())

		last, ok := engine.EquityCurve.Last()
		require.True(t, ok)
		assert.Equal(t, ticks[2].Timestamp, last.Timestamp)
	})

	t.Run("opposing fills that net to zero realize the signed cash flow", func(t *testing.T) {
		ticks := testTicks([2]float64{100, 100}, [2]float64{101, 105}, [2]float64{110, 108}, [2]float64{112, 111})

		strategy := &scriptedStrategy{script: map[int]models.OrderSide{0: models.OrderSideBuy}, quantity: 100}
		engine, err := NewBacktest(symbol, strategy, testConfig())
		require.NoError(t, err)

		require.NoError(t, engine.HandleTick(ticks[0]))
		require.NoError(t, engine.HandleTick(ticks[1]))

		// offsetting sell, fills at t4's open
		_, err = engine.PlaceOrder(ticks[2].Timestamp, symbol, models.OrderSideSell, 100)
		require.NoError(t, err)

		require.NoError(t, engine.HandleTick(ticks[2]))
		require.NoError(t, engine.HandleTick(ticks[3]))

		position, err := engine.GetPosition(symbol)
		require.NoError(t, err)
		assert.Equal(t, 0.0, position.Net)

		// bought 100 at 101, sold 100 at 112
		assert.Equal(t, (112.0-101.0)*100.0, position.RealizedPnL)
		assert.Equal(t, 0.0, position.UnrealizedPnL)
		assert.Equal(t, position.Cash, position.Equity)
		assert.Equal(t, strategies.PositionStateFlat, strategy.State())
	})

	t.Run("a fill that would drive cash negative is fatal", func(t *testing.T) {
		ticks := testTicks([2]float64{100, 100}, [2]float64{101, 105})

		config := testConfig()
		config.StartingCash = 5_000

		strategy := &scriptedStrategy{script: map[int]models.OrderSide{0: models.OrderSideBuy}, quantity: 100}
		engine, err := NewBacktest(symbol, strategy, config)
		require.NoError(t, err)

		feed, err := feeds.NewSliceFeed(symbol, ticks)
		require.NoError(t, err)

		err = engine.Run(feed)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrInsufficientBalance)
	})

	t.Run("querying a symbol with no recorded ticks fails loudly", func(t *testing.T) {
		strategy := &scriptedStrategy{script: map[int]models.OrderSide{0: models.OrderSideBuy}, quantity: 100}
		engine, err := NewBacktest(symbol, strategy, testConfig())
		require.NoError(t, err)

		_, err = engine.LastTick("ETHUSD")
		assert.ErrorIs(t, err, models.ErrUnknownSymbol)

		_, err = engine.GetPosition("ETHUSD")
		assert.ErrorIs(t, err, models.ErrUnknownSymbol)
	})

	t.Run("fills are published on the event bus", func(t *testing.T) {
		ticks := testTicks([2]float64{100, 100}, [2]float64{101, 105})

		strategy := &scriptedStrategy{script: map[int]models.OrderSide{0: models.OrderSideBuy}, quantity: 100}
		engine, err := NewBacktest(symbol, strategy, testConfig())
		require.NoError(t, err)

		var fills []*models.Fill
		require.NoError(t, engine.Subscribe(TopicOrderFill, func(fill *models.Fill) {
			fills = append(fills, fill)
		}))

		for _, tick := range ticks {
			require.NoError(t, engine.HandleTick(tick))
		}

		require.Len(t, fills, 1)
		assert.Equal(t, 101.0, fills[0].Price)
	})
}

func TestEngineRun(t *testing.T) {
	t.Run("run ends flat after liquidation", func(t *testing.T) {
		ticks := testTicks([2]float64{100, 100}, [2]float64{101, 105}, [2]float64{104, 103})

		strategy := &scriptedStrategy{script: map[int]models.OrderSide{0: models.OrderSideBuy}, quantity: 100}
		engine, err := NewBacktest(symbol, strategy, testConfig())
		require.NoError(t, err)

		feed, err := feeds.NewSliceFeed(symbol, ticks)
		require.NoError(t, err)

		require.NoError(t, engine.Run(feed))

		position, err := engine.GetPosition(symbol)
		require.NoError(t, err)
		assert.Equal(t, 0.0, position.Net)
		assert.Equal(t, 0.0, position.UnrealizedPnL)
		assert.Equal(t, position.Cash, position.Equity)

		// bought 100 at 101, liquidated at the final close, 103
		assert.Equal(t, (103.0-101.0)*100.0, position.RealizedPnL)
		assert.Equal(t, strategies.PositionStateFlat, strategy.State())

		// the settlement tick contributes one extra equity sample
		assert.Equal(t, 3, engine.EquityCurve.Len())
	})

	t.Run("an opposing order pending at feed exhaustion still flattens the run", func(t *testing.T) {
		ticks := testTicks([2]float64{100, 100}, [2]float64{101, 105}, [2]float64{104, 103})

		// buy on the first tick, sell on the last: the sell is still pending
		// when the feed runs out and fills on the settlement tick
		strategy := &scriptedStrategy{
			script:   map[int]models.OrderSide{0: models.OrderSideBuy, 2: models.OrderSideSell},
			quantity: 100,
		}
		engine, err := NewBacktest(symbol, strategy, testConfig())
		require.NoError(t, err)

		feed, err := feeds.NewSliceFeed(symbol, ticks)
		require.NoError(t, err)

		require.NoError(t, engine.Run(feed))

		position, err := engine.GetPosition(symbol)
		require.NoError(t, err)
		assert.Equal(t, 0.0, position.Net)
		assert.Equal(t, 0.0, position.UnrealizedPnL)
		assert.Equal(t, position.Cash, position.Equity)
		assert.Empty(t, engine.PendingOrders())

		// bought 100 at 101, the pending sell settles at the final close, 103
		assert.Equal(t, (103.0-101.0)*100.0, position.RealizedPnL)
		assert.Equal(t, strategies.PositionStateFlat, strategy.State())
	})

	t.Run("a same-direction order pending at feed exhaustion is offset in full", func(t *testing.T) {
		ticks := testTicks([2]float64{100, 100}, [2]float64{101, 105}, [2]float64{104, 103})

		strategy := &scriptedStrategy{
			script:   map[int]models.OrderSide{0: models.OrderSideBuy, 2: models.OrderSideBuy},
			quantity: 100,
		}
		engine, err := NewBacktest(symbol, strategy, testConfig())
		require.NoError(t, err)

		feed, err := feeds.NewSliceFeed(symbol, ticks)
		require.NoError(t, err)

		require.NoError(t, engine.Run(feed))

		position, err := engine.GetPosition(symbol)
		require.NoError(t, err)
		assert.Equal(t, 0.0, position.Net)
		assert.Equal(t, 0.0, position.UnrealizedPnL)
		assert.Empty(t, engine.PendingOrders())

		// bought 100 at 101 and 100 at the settlement open, 103, then the
		// liquidation sell of 200 unwinds both at 103
		assert.Equal(t, -10_100.0-10_300.0+20_600.0, position.RealizedPnL)
		assert.Equal(t, strategies.PositionStateFlat, strategy.State())
	})

	t.Run("a flat run needs no liquidation", func(t *testing.T) {
		ticks := testTicks([2]float64{100, 100}, [2]float64{101, 105})

		strategy := &scriptedStrategy{}
		engine, err := NewBacktest(symbol, strategy, testConfig())
		require.NoError(t, err)

		feed, err := feeds.NewSliceFeed(symbol, ticks)
		require.NoError(t, err)

		require.NoError(t, engine.Run(feed))
		assert.Equal(t, 0, engine.EquityCurve.Len())
	})

	t.Run("replaying the same ticks yields an identical equity series", func(t *testing.T) {
		prices := [][2]float64{}
		price := 100.0
		for i := 0; i < 120; i++ {
			// deterministic zig-zag with drift
			if i%7 < 4 {
				price += 3
			} else {
				price -= 2
			}
			prices = append(prices, [2]float64{price - 1, price})
		}

		run := func() *Series {
			strategy := strategies.NewMACStrategy(symbol, 20, 50, 20, 0, 100)
			engine, err := NewBacktest(symbol, strategy, testConfig())
			require.NoError(t, err)

			feed, err := feeds.NewSliceFeed(symbol, testTicks(prices...))
			require.NoError(t, err)

			require.NoError(t, engine.Run(feed))

			return engine.EquityCurve
		}

		first := run()
		second := run()

		require.Equal(t, first.Len(), second.Len())
		assert.Equal(t, first.Samples, second.Samples)
	})
}
