package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"marketreplay/src/feeds"
	"marketreplay/src/models"
	"marketreplay/src/strategies"
)

const (
	TopicOrderPlaced = "backtest:order_placed"
	TopicOrderFill   = "backtest:order_fill"
	TopicEquity      = "backtest:equity"
)

// Backtest drives the simulation: it feeds ticks in chronological order to
// the strategy, the order book and the ledger, in a fixed per-step sequence.
//
// Per tick: the strategy sees the tick first and may request an order; the
// request is queued on the book; the book then matches orders queued on
// strictly earlier ticks against this tick's open; every fill updates the
// ledger and the strategy state; finally the ledger is marked to market at
// this tick's close. The ordering prevents look-ahead bias: a signal never
// sees a same-tick fill, and fills always execute at a later tick's open than
// the tick that generated them.
//
// The engine is single-threaded by design. Exactly one caller drives all
// state transitions, so no locking discipline is required; if this is ever
// sharded, shard per symbol.
type Backtest struct {
	RunID uuid.UUID

	symbol   models.Symbol
	strategy strategies.Strategy
	config   Config

	book      *OrderBook
	positions map[models.Symbol]*models.Position
	lastTicks map[models.Symbol]models.Tick

	orderNonce   uint
	prevInterval time.Duration

	bus EventBus.Bus

	RealizedPnL   *Series
	UnrealizedPnL *Series
	EquityCurve   *Series
}

// Subscribe registers a synchronous handler for one of the engine topics.
func (b *Backtest) Subscribe(topic string, handler interface{}) error {
	return b.bus.Subscribe(topic, handler)
}

// PlaceOrder queues a market order on the book. The order becomes eligible
// for matching strictly after its timestamp.
func (b *Backtest) PlaceOrder(timestamp time.Time, symbol models.Symbol, side models.OrderSide, quantity float64) (*models.Order, error) {
	if quantity <= 0 {
		return nil, models.ErrInvalidOrderVolumeZero
	}

	order := models.NewOrder(b.nextOrderID(), timestamp, symbol, side, quantity)
	b.book.Submit(order)

	log.Infof("%s received order: %s %.0f %s", timestamp.Format("2006-01-02"), order.Side, order.Quantity, order.Symbol)

	b.bus.Publish(TopicOrderPlaced, order)

	return order, nil
}

// HandleTick runs one full simulation step.
func (b *Backtest) HandleTick(tick models.Tick) error {
	b.lastTicks[tick.Symbol] = tick

	// The strategy sees the tick before any same-tick fill can affect its
	// state; its request queues behind this tick's match and fills no
	// earlier than the next one.
	if request := b.strategy.OnTick(tick); request != nil {
		if _, err := b.PlaceOrder(request.Timestamp, request.Symbol, request.Side, request.Quantity); err != nil {
			return fmt.Errorf("error placing order: %w", err)
		}
	}

	return b.settle(tick)
}

// settle matches the book against the tick, applies the resulting fills and
// marks the ledger to market at the tick's close.
func (b *Backtest) settle(tick models.Tick) error {
	fills, err := b.book.Match(tick)
	if err != nil {
		return fmt.Errorf("error matching order book: %w", err)
	}

	for _, fill := range fills {
		position := b.position(fill.Symbol)

		if err := position.ApplyFill(fill.Timestamp, fill.Side, fill.Quantity, fill.Price); err != nil {
			return fmt.Errorf("error applying fill for order %d: %w", fill.OrderID, err)
		}

		b.strategy.OnFill(*fill, position.Net)

		log.Infof("%s filled: %s %.0f %s at %.2f", fill.Timestamp.Format("2006-01-02"), fill.Side, fill.Quantity, fill.Symbol, fill.Price)

		b.bus.Publish(TopicOrderFill, fill)
	}

	// one sample per tick, even when several orders fill in the same step
	if len(fills) > 0 {
		b.RealizedPnL.Append(tick.Timestamp, b.position(tick.Symbol).RealizedPnL)
	}

	if position, ok := b.positions[tick.Symbol]; ok {
		position.MarkToMarket(tick.Close)

		b.UnrealizedPnL.Append(tick.Timestamp, position.UnrealizedPnL)
		b.EquityCurve.Append(tick.Timestamp, position.Equity)

		log.Debugf("%s net: %.0f value: %.2f upnl: %.2f rpnl: %.2f equity: %.2f",
			tick.Timestamp.Format("2006-01-02"), position.Net, position.PositionValue,
			position.UnrealizedPnL, position.RealizedPnL, position.Equity)

		b.bus.Publish(TopicEquity, Sample{Timestamp: tick.Timestamp, Value: position.Equity})
	}

	return nil
}

// Run replays the feed through the engine, then liquidates any open position
// so no exposure is left at run end. It stops early only on a fatal error,
// insufficient balance included.
func (b *Backtest) Run(feed feeds.TickFeed) error {
	log.Infof("backtest %s started for %s", b.RunID, b.symbol)

	var prevTimestamp time.Time

	for {
		tick, ok := feed.Next()
		if !ok {
			break
		}

		if !prevTimestamp.IsZero() {
			b.prevInterval = tick.Timestamp.Sub(prevTimestamp)
		}
		prevTimestamp = tick.Timestamp

		if err := b.HandleTick(tick); err != nil {
			return fmt.Errorf("error handling tick at %s: %w", tick.Timestamp, err)
		}
	}

	if err := b.Liquidate(); err != nil {
		return fmt.Errorf("error liquidating: %w", err)
	}

	log.Infof("backtest %s completed", b.RunID)

	return nil
}

// Liquidate flattens the book at run end: any orders still pending from the
// final tick will fill on the settlement tick too, so the offsetting order is
// sized to the net position plus the signed quantity of those pending orders.
// Everything is driven through the regular fill and mark-to-market path on a
// synthetic settlement tick one interval past the end of the series, priced
// at the last close.
func (b *Backtest) Liquidate() error {
	net := 0.0
	if position, ok := b.positions[b.symbol]; ok {
		net = position.Net
	}

	pending := 0.0
	for _, order := range b.book.PendingOrders() {
		if order.Symbol == b.symbol {
			pending += order.GetQuantity()
		}
	}

	residual := net + pending
	if residual == 0 && pending == 0 {
		return nil
	}

	last, ok := b.lastTicks[b.symbol]
	if !ok {
		return fmt.Errorf("%w: %s has no recorded ticks", models.ErrUnknownSymbol, b.symbol)
	}

	if residual != 0 {
		side := models.OrderSideSell
		if residual < 0 {
			side = models.OrderSideBuy
		}

		if _, err := b.PlaceOrder(last.Timestamp, b.symbol, side, math.Abs(residual)); err != nil {
			return fmt.Errorf("error placing liquidation order: %w", err)
		}
	}

	interval := b.prevInterval
	if interval <= 0 {
		interval = time.Second
	}

	settlement := models.Tick{
		Symbol:    b.symbol,
		Timestamp: last.Timestamp.Add(interval),
		Open:      last.Close,
		Close:     last.Close,
	}

	return b.settle(settlement)
}

// GetPosition returns a copy of the ledger for the symbol. Querying a symbol
// the engine has never traded is a programming error and fails loudly.
func (b *Backtest) GetPosition(symbol models.Symbol) (models.Position, error) {
	position, ok := b.positions[symbol]
	if !ok {
		return models.Position{}, fmt.Errorf("%w: no position recorded for %s", models.ErrUnknownSymbol, symbol)
	}

	return *position, nil
}

// LastTick returns the most recent tick seen for the symbol.
func (b *Backtest) LastTick(symbol models.Symbol) (models.Tick, error) {
	tick, ok := b.lastTicks[symbol]
	if !ok {
		return models.Tick{}, fmt.Errorf("%w: %s has no recorded ticks", models.ErrUnknownSymbol, symbol)
	}

	return tick, nil
}

func (b *Backtest) PendingOrders() []*models.Order {
	return b.book.PendingOrders()
}

func (b *Backtest) position(symbol models.Symbol) *models.Position {
	position, ok := b.positions[symbol]
	if !ok {
		position = models.NewPosition(symbol, b.config.StartingCash)
		b.positions[symbol] = position
	}

	return position
}

func (b *Backtest) nextOrderID() uint {
	b.orderNonce++
	return b.orderNonce - 1
}

func NewBacktest(symbol models.Symbol, strategy strategies.Strategy, config Config) (*Backtest, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Backtest{
		RunID:         uuid.New(),
		symbol:        symbol,
		strategy:      strategy,
		config:        config,
		book:          NewOrderBook(),
		positions:     make(map[models.Symbol]*models.Position),
		lastTicks:     make(map[models.Symbol]models.Tick),
		orderNonce:    1,
		bus:           EventBus.New(),
		RealizedPnL:   NewSeries("rpnl"),
		UnrealizedPnL: NewSeries("upnl"),
		EquityCurve:   NewSeries("equity"),
	}, nil
}
