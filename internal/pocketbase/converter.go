package pocketbase

import "github.com/0xc0d3d00d/candlesync/internal/domain"

// CandleRecord is the stored form of a candle.
type CandleRecord struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Vmap   string  `json:"vmap"`
	Volume float64 `json:"volume"`
	Count  int64   `json:"count"`
}

func NewCandleRecord(c domain.Candle) CandleRecord {
	return CandleRecord{
		Time:   c.Timestamp.Unix(),
		Open:   c.Open,
		High:   c.High,
		Low:    c.Low,
		Close:  c.Close,
		Vmap:   c.Vwap,
		Volume: c.Volume,
		Count:  c.Count,
	}
}
