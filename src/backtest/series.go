package backtest

import "time"

type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series is a time-indexed sequence of samples. The engine appends at most
// one sample per tick.
type Series struct {
	Name    string
	Samples []Sample
}

func (s *Series) Append(timestamp time.Time, value float64) {
	s.Samples = append(s.Samples, Sample{Timestamp: timestamp, Value: value})
}

func (s *Series) Len() int {
	return len(s.Samples)
}

func (s *Series) Last() (Sample, bool) {
	if len(s.Samples) == 0 {
		return Sample{}, false
	}

	return s.Samples[len(s.Samples)-1], true
}

func (s *Series) Values() []float64 {
	values := make([]float64, 0, len(s.Samples))
	for _, sample := range s.Samples {
		values = append(values, sample.Value)
	}

	return values
}

func NewSeries(name string) *Series {
	return &Series{
		Name:    name,
		Samples: make([]Sample, 0),
	}
}
