package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Odds is a decimal price that may be absent. An absent price means the runner
// is not a live betting selection; it is never encoded as zero.
type Odds struct {
	value   decimal.Decimal
	present bool
}

// NoOdds returns an absent price
func NoOdds() Odds {
	return Odds{}
}

// OddsOf returns a present price
func OddsOf(value decimal.Decimal) Odds {
	return Odds{value: value, present: true}
}

// OddsFromFloat returns a present price from a float64
func OddsFromFloat(value float64) Odds {
	return OddsOf(decimal.NewFromFloat(value))
}

// MustParseOdds parses a decimal string and panics on failure. Intended for fixtures.
func MustParseOdds(s string) Odds {
	return OddsOf(decimal.RequireFromString(s))
}

// Present reports whether a price is set
func (o Odds) Present() bool {
	return o.present
}

// Value returns the price and whether it is set
func (o Odds) Value() (decimal.Decimal, bool) {
	return o.value, o.present
}

// IsPositive reports whether the price is set and greater than zero
func (o Odds) IsPositive() bool {
	return o.present && o.value.IsPositive()
}

// OrZero returns the price, or zero when absent. Only for comparisons; never display it.
func (o Odds) OrZero() decimal.Decimal {
	if !o.present {
		return decimal.Zero
	}
	return o.value
}

// Equal compares two prices; two absent prices are equal
func (o Odds) Equal(other Odds) bool {
	if o.present != other.present {
		return false
	}
	return !o.present || o.value.Equal(other.value)
}

// String implements fmt.Stringer
func (o Odds) String() string {
	if !o.present {
		return "-"
	}
	return o.value.String()
}

// MarshalJSON encodes a present price as a JSON number and an absent one as null
func (o Odds) MarshalJSON() ([]byte, error) {
	if !o.present {
		return []byte("null"), nil
	}
	return []byte(o.value.String()), nil
}

// UnmarshalJSON accepts a JSON number, a quoted decimal string or null
func (o *Odds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = NoOdds()
		return nil
	}

	var raw json.Number
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid odds %s: %w", data, err)
		}
		raw = json.Number(s)
	} else {
		raw = json.Number(data)
	}

	value, err := decimal.NewFromString(raw.String())
	if err != nil {
		return fmt.Errorf("invalid odds %s: %w", data, err)
	}
	*o = OddsOf(value)
	return nil
}
