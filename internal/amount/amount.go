// Package amount handles money values from the backend API
// without losing precision.
package amount

import (
	"encoding/json"
	"strconv"
)

// Amount is a fixed-point value in micro-units (1.0 == 1_000_000).
type Amount int64

var _ json.Unmarshaler = (*Amount)(nil)

const Scale int64 = 1_000_000

// FromFloat converts a float to micro-units.
func FromFloat(f float64) Amount {
	return Amount(f * float64(Scale))
}

// Float64 converts micro-units back to a float for chart payloads.
func (a Amount) Float64() float64 {
	return float64(a) / float64(Scale)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(a.Float64(), 'f', -1, 64)), nil
}

// UnmarshalJSON accepts quoted strings and raw numbers. The backend is
// inconsistent about which it sends, and some admin endpoints send
// garbage for missing values; anything unparseable coerces to 0 rather
// than failing the surrounding decode.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) > 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	// Else we assume that it is a raw number.

	if len(data) == 0 || string(data) == "null" {
		*a = 0
		return nil
	}

	neg := false
	i := 0
	if data[0] == '-' {
		neg = true
		i = 1
	}

	var res int64
	sawDigit := false

	for i < len(data) && data[i] != '.' {
		if data[i] < '0' || data[i] > '9' {
			*a = 0
			return nil
		}
		res = res*10 + int64(data[i]-'0')*Scale
		sawDigit = true
		i++
	}

	if i < len(data) && data[i] == '.' {
		i++
		mult := Scale
		for i < len(data) {
			if data[i] < '0' || data[i] > '9' {
				*a = 0
				return nil
			}
			mult /= 10
			res += int64(data[i]-'0') * mult
			sawDigit = true
			i++
		}
	}

	if !sawDigit {
		*a = 0
		return nil
	}

	if neg {
		res = -res
	}
	*a = Amount(res)
	return nil
}
