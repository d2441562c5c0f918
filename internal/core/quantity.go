package core

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidQuantity reports a quantity cell that cannot be read as a
// signed integer.
var ErrInvalidQuantity = errors.New("invalid quantity")

// ParseQuantity converts a stored quantity cell to a signed integer.
//
// Ledger rows written by this program always hold plain integers, but a
// shared sheet can pick up formatting from other tools, so integral float
// renderings like "3.0" or "-2.00" are accepted too. Anything fractional
// or non-numeric is an error; callers on the read path skip such rows.
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidQuantity
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, ErrInvalidQuantity
	}
	n := int(f)
	if float64(n) != f {
		return 0, ErrInvalidQuantity
	}
	return n, nil
}
