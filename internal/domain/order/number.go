package order

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

// Order numbers are a durable user-facing contract: PED-<year>-<seq>, with
// the sequence zero-padded to 4 digits. The format must not change without a
// migration plan for existing orders.
const numberPrefix = "PED"

// ErrBadNumber is returned when a string is not a well-formed order number.
var ErrBadNumber = errors.New("malformed order number")

// FormatNumber renders the order number for a year and sequence value.
// Sequences above 9999 widen naturally rather than wrapping.
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", numberPrefix, year, seq)
}

// NumberPrefix returns the LIKE pattern matching all numbers of a year.
func NumberPrefix(year int) string {
	return fmt.Sprintf("%s-%d-%%", numberPrefix, year)
}

// ParseNumber extracts the year and sequence from an order number.
func ParseNumber(s string) (year, seq int, err error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || parts[0] != numberPrefix {
		return 0, 0, errors.Wrapf(ErrBadNumber, "%q", s)
	}
	year, err = strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 4 {
		return 0, 0, errors.Wrapf(ErrBadNumber, "%q", s)
	}
	seq, err = strconv.Atoi(parts[2])
	if err != nil || seq < 1 {
		return 0, 0, errors.Wrapf(ErrBadNumber, "%q", s)
	}
	return year, seq, nil
}
