package indicators

// EWMA maintains an exponentially weighted moving average incrementally,
// with the smoothing parameter derived from the window span:
// alpha = 2 / (span + 1). The first observation seeds the average.
type EWMA struct {
	span  int
	alpha float64
	value float64
	count int
}

func (e *EWMA) Update(price float64) float64 {
	if e.count == 0 {
		e.value = price
	} else {
		e.value = e.alpha*price + (1-e.alpha)*e.value
	}

	e.count++

	return e.value
}

func (e *EWMA) Value() float64 {
	return e.value
}

func (e *EWMA) Count() int {
	return e.count
}

func (e *EWMA) Span() int {
	return e.span
}

func NewEWMA(span int) *EWMA {
	return &EWMA{
		span:  span,
		alpha: 2.0 / (float64(span) + 1.0),
	}
}
