package feeds

import (
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"marketreplay/src/models"
)

type csvTickDTO struct {
	Timestamp string  `csv:"timestamp"`
	Open      float64 `csv:"open"`
	Close     float64 `csv:"close"`
	Volume    float64 `csv:"volume"`
}

func (d *csvTickDTO) toModel(symbol models.Symbol) (models.Tick, error) {
	timestamp, err := time.Parse(time.RFC3339, d.Timestamp)
	if err != nil {
		timestamp, err = time.Parse("2006-01-02", d.Timestamp)
		if err != nil {
			return models.Tick{}, fmt.Errorf("error parsing timestamp %q: %w", d.Timestamp, err)
		}
	}

	return models.Tick{
		Symbol:    symbol,
		Timestamp: timestamp,
		Open:      d.Open,
		Close:     d.Close,
		Volume:    d.Volume,
	}, nil
}

// NewCSVFeed loads {timestamp, open, close, volume} rows from a csv file.
// Exports that list the newest row first are reversed into chronological
// order before validation.
func NewCSVFeed(symbol models.Symbol, path string) (*SliceFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening csv file %s: %w", path, err)
	}
	defer f.Close()

	var rows []*csvTickDTO
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("error parsing csv file %s: %w", path, err)
	}

	ticks := make([]models.Tick, 0, len(rows))
	for _, row := range rows {
		tick, err := row.toModel(symbol)
		if err != nil {
			return nil, err
		}

		ticks = append(ticks, tick)
	}

	if len(ticks) > 1 && ticks[0].Timestamp.After(ticks[len(ticks)-1].Timestamp) {
		log.Infof("csv file %s is newest-first, reversing into chronological order", path)

		for i, j := 0, len(ticks)-1; i < j; i, j = i+1, j-1 {
			ticks[i], ticks[j] = ticks[j], ticks[i]
		}
	}

	feed, err := NewSliceFeed(symbol, ticks)
	if err != nil {
		return nil, fmt.Errorf("error validating csv file %s: %w", path, err)
	}

	log.Infof("loaded %d ticks for %s from %s", feed.Len(), symbol, path)

	return feed, nil
}
