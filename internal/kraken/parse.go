package kraken

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/0xc0d3d00d/candlesync/internal/domain"
)

// Positions of the fields in an OHLC row.
const (
	fieldTime = iota
	fieldOpen
	fieldHigh
	fieldLow
	fieldClose
	fieldVwap
	fieldVolume
	fieldCount

	rowLength
)

func splitRows(series json.RawMessage) ([]json.RawMessage, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(series, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Row is one positional OHLC row
// [time, open, high, low, close, vwap, volume, count] as sent by the API.
type Row struct {
	raw        json.RawMessage
	index      int
	symbol     string
	resolution domain.Resolution
}

// Candle coerces the row into a candle of the requested symbol and resolution.
func (r Row) Candle() (domain.Candle, error) {
	candle, err := parseCandle(r.raw)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("row %d of %s: %w", r.index, r.symbol, err)
	}
	candle.TickerId = r.symbol
	candle.Resolution = r.resolution
	return candle, nil
}

func parseCandle(row json.RawMessage) (domain.Candle, error) {
	decoder := json.NewDecoder(bytes.NewReader(row))
	decoder.UseNumber()

	var fields []any
	if err := decoder.Decode(&fields); err != nil {
		return domain.Candle{}, fmt.Errorf("%w: %w", domain.ErrMalformedCandle, err)
	}
	if len(fields) != rowLength {
		return domain.Candle{}, fmt.Errorf("%w: expected %d fields, got %d", domain.ErrMalformedCandle, rowLength, len(fields))
	}

	var (
		candle domain.Candle
		err    error
	)

	timestamp, err := toInt(fields[fieldTime])
	if err != nil {
		return domain.Candle{}, fieldError("time", err)
	}
	candle.Timestamp = time.Unix(timestamp, 0).UTC()

	if candle.Open, err = toFloat(fields[fieldOpen]); err != nil {
		return domain.Candle{}, fieldError("open", err)
	}
	if candle.High, err = toFloat(fields[fieldHigh]); err != nil {
		return domain.Candle{}, fieldError("high", err)
	}
	if candle.Low, err = toFloat(fields[fieldLow]); err != nil {
		return domain.Candle{}, fieldError("low", err)
	}
	if candle.Close, err = toFloat(fields[fieldClose]); err != nil {
		return domain.Candle{}, fieldError("close", err)
	}
	if candle.Vwap, err = toString(fields[fieldVwap]); err != nil {
		return domain.Candle{}, fieldError("vwap", err)
	}
	if candle.Volume, err = toFloat(fields[fieldVolume]); err != nil {
		return domain.Candle{}, fieldError("volume", err)
	}
	if candle.Count, err = toInt(fields[fieldCount]); err != nil {
		return domain.Candle{}, fieldError("count", err)
	}

	return candle, nil
}

func fieldError(field string, err error) error {
	return fmt.Errorf("%w: field %s: %w", domain.ErrMalformedCandle, field, err)
}

func toInt(v any) (int64, error) {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch v := v.(type) {
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func toString(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unexpected type %T", v)
	}
}
