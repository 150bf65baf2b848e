package domain

import (
	"errors"
	"time"
)

var ErrInvalidResolution = errors.New("invalid resolution")

// Resolution is the candle interval. Only intervals served by the
// market data API are known.
type Resolution time.Duration

func (r Resolution) String() string {
	return resolutionToString[r]
}

// Minutes returns the interval length in whole minutes.
func (r Resolution) Minutes() int {
	return int(time.Duration(r) / time.Minute)
}

func (r *Resolution) UnmarshalText(text []byte) error {
	parsed, err := ParseResolution(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Resolution) MarshalText() ([]byte, error) {
	s, ok := resolutionToString[r]
	if !ok {
		return nil, ErrInvalidResolution
	}
	return []byte(s), nil
}

func ParseResolution(s string) (Resolution, error) {
	r, ok := stringToResolution[s]
	if !ok {
		return 0, ErrInvalidResolution
	}
	return r, nil
}

var resolutionToString = map[Resolution]string{
	Resolution(time.Minute):         "m1",
	Resolution(time.Minute * 5):     "m5",
	Resolution(time.Minute * 15):    "m15",
	Resolution(time.Minute * 30):    "m30",
	Resolution(time.Hour):           "h1",
	Resolution(time.Hour * 4):       "h4",
	Resolution(time.Hour * 24):      "d1",
	Resolution(time.Hour * 24 * 7):  "w1",
	Resolution(time.Hour * 24 * 15): "d15",
}

var stringToResolution = map[string]Resolution{
	"m1":  Resolution(time.Minute),
	"m5":  Resolution(time.Minute * 5),
	"m15": Resolution(time.Minute * 15),
	"m30": Resolution(time.Minute * 30),
	"h1":  Resolution(time.Hour),
	"h4":  Resolution(time.Hour * 4),
	"d1":  Resolution(time.Hour * 24),
	"w1":  Resolution(time.Hour * 24 * 7),
	"d15": Resolution(time.Hour * 24 * 15),
}
