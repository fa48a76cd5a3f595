package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount caps a single payment in major currency units.
var MaxAmount = decimal.New(1, 9)

// ParseAmount reads a JSON number or numeric string and returns a positive
// amount rounded half-to-even to two decimal places.
func ParseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}

	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		text = strings.TrimSpace(s)
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not numeric", ErrInvalidAmount, text)
	}
	return ValidateAmount(d)
}

func ValidateAmount(d decimal.Decimal) (decimal.Decimal, error) {
	d = d.RoundBank(2)
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	if d.GreaterThan(MaxAmount) {
		return decimal.Zero, fmt.Errorf("%w: amount exceeds %s", ErrInvalidAmount, MaxAmount)
	}
	return d, nil
}

// ToMinorUnits converts a major-unit amount into the smallest currency unit
// with round-half-to-even.
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).RoundBank(0).IntPart()
}
