package timeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Timestamp is a non-negative number of seconds with exact decimal precision.
type Timestamp = decimal.Decimal

// ClockPrecision is the number of fractional digits used when serializing times.
const ClockPrecision = 6

const (
	microsPerSecond = 1_000_000
	microsPerMinute = 60 * microsPerSecond
	microsPerHour   = 60 * microsPerMinute
)

// Zero is the start of every stream.
var Zero = decimal.Zero

// ErrNegativeTimestamp reports a timestamp below zero.
var ErrNegativeTimestamp = errors.New("timestamp must not be negative")

// ParseSeconds parses a decimal number of seconds such as "12.04" or "5".
func ParseSeconds(value string) (Timestamp, error) {
	parsed, err := ParseOffset(value)
	if err != nil {
		return Zero, err
	}
	if parsed.IsNegative() {
		return Zero, fmt.Errorf("parse seconds %q: %w", strings.TrimSpace(value), ErrNegativeTimestamp)
	}
	return parsed, nil
}

// ParseOffset is ParseSeconds without the sign check. Container timestamps
// can start below zero when an edit list shifts the first frames.
func ParseOffset(value string) (Timestamp, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Zero, errors.New("parse seconds: empty value")
	}
	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Zero, fmt.Errorf("parse seconds %q: %w", trimmed, err)
	}
	return parsed, nil
}

// Seconds builds a timestamp from whole seconds.
func Seconds(value int64) Timestamp {
	return decimal.NewFromInt(value)
}

// FormatSeconds renders t with the fixed serialization precision, e.g. "4.000000".
func FormatSeconds(t Timestamp) string {
	return t.StringFixed(ClockPrecision)
}

// FormatClock renders t as HH:MM:SS.ffffff, rounding to the nearest microsecond.
func FormatClock(t Timestamp) string {
	micros := t.Shift(ClockPrecision).Round(0).IntPart()
	if micros < 0 {
		micros = 0
	}
	hours := micros / microsPerHour
	minutes := (micros % microsPerHour) / microsPerMinute
	seconds := (micros % microsPerMinute) / microsPerSecond
	fraction := micros % microsPerSecond
	return fmt.Sprintf("%02d:%02d:%02d.%06d", hours, minutes, seconds, fraction)
}

// Max returns the later of a and b.
func Max(a, b Timestamp) Timestamp {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
