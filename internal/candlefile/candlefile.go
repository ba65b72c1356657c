// Package candlefile loads OHLCV candle series from CSV files.
//
// Expected columns: ts,open,high,low,close,volume. Timestamps are unix
// milliseconds. A header row is detected and skipped.
package candlefile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"trading-signal-lab/internal/domain"
)

const fieldCount = 6

// Load reads a candle series from a CSV file.
func Load(path string) ([]domain.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candle file: %w", err)
	}
	defer f.Close()

	candles, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read candle file %s: %w", path, err)
	}
	return candles, nil
}

// Read parses candle rows from r.
func Read(r io.Reader) ([]domain.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fieldCount

	var candles []domain.Candle
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		line++

		// Header row
		if line == 1 && !isNumeric(record[0]) {
			continue
		}

		c, err := parseCandle(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		candles = append(candles, c)
	}

	return candles, nil
}

func parseCandle(record []string) (domain.Candle, error) {
	ts, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse ts %q: %w", record[0], err)
	}

	vals := make([]float64, 5)
	names := []string{"open", "high", "low", "close", "volume"}
	for i, name := range names {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("parse %s %q: %w", name, record[i+1], err)
		}
		vals[i] = v
	}

	c := domain.Candle{
		TimestampMs: ts,
		Open:        vals[0],
		High:        vals[1],
		Low:         vals[2],
		Close:       vals[3],
		Volume:      vals[4],
	}
	if !c.Valid() {
		return domain.Candle{}, fmt.Errorf("invalid candle at ts %d", ts)
	}
	return c, nil
}

func isNumeric(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}
