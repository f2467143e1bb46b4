package discovery

import (
	"errors"
	"fmt"
	"strings"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	// ErrNegativeValue is returned when encoding a negative number.
	ErrNegativeValue = errors.New("value must be non-negative")
	// ErrValueTooLarge is returned when a number does not fit the requested width.
	ErrValueTooLarge = errors.New("value too large for given width")
	// ErrInvalidDigit is returned when decoding a character outside 0-9A-Z.
	ErrInvalidDigit = errors.New("invalid base36 digit")
)

// toBase36 encodes a non-negative integer as a zero-padded base36 string of
// exactly width characters.
func toBase36(n, width int) (string, error) {
	if n < 0 {
		return "", ErrNegativeValue
	}

	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = alphabet[n%36]
		n /= 36
	}
	if n > 0 {
		return "", ErrValueTooLarge
	}
	return string(buf), nil
}

// fromBase36 decodes a base36 string to an integer. Lowercase input is
// accepted.
func fromBase36(s string) (int, error) {
	n := 0
	for _, c := range strings.ToUpper(s) {
		idx := strings.IndexRune(alphabet, c)
		if idx < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDigit, c)
		}
		n = n*36 + idx
	}
	return n, nil
}
