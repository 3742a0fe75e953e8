package analytics

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"marketreplay/src/backtest"
)

type seriesRowDTO struct {
	Timestamp string  `csv:"timestamp"`
	Value     float64 `csv:"value"`
}

// WriteSeries writes a series as {timestamp, value} csv rows.
func WriteSeries(w io.Writer, series *backtest.Series) error {
	rows := make([]*seriesRowDTO, 0, series.Len())
	for _, sample := range series.Samples {
		rows = append(rows, &seriesRowDTO{
			Timestamp: sample.Timestamp.Format(time.RFC3339),
			Value:     sample.Value,
		})
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("error writing %s series: %w", series.Name, err)
	}

	return nil
}

// ExportSeriesCSV writes a series to <dir>/<name>.csv.
func ExportSeriesCSV(dir string, series *backtest.Series) (string, error) {
	path := fmt.Sprintf("%s/%s.csv", dir, series.Name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error creating %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteSeries(f, series); err != nil {
		return "", err
	}

	return path, nil
}
