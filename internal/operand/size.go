package operand

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidNumber is returned for malformed or out-of-range sizes.
var ErrInvalidNumber = errors.New("invalid number")

var multipliers = map[string]int64{
	"":    1,
	"c":   1,
	"w":   2,
	"b":   512,
	"kB":  1000,
	"KB":  1000,
	"k":   1 << 10,
	"K":   1 << 10,
	"KiB": 1 << 10,
	"MB":  1000 * 1000,
	"M":   1 << 20,
	"MiB": 1 << 20,
	"GB":  1000 * 1000 * 1000,
	"G":   1 << 30,
	"GiB": 1 << 30,
	"TB":  1000 * 1000 * 1000 * 1000,
	"T":   1 << 40,
	"TiB": 1 << 40,
	"PB":  1000 * 1000 * 1000 * 1000 * 1000,
	"P":   1 << 50,
	"PiB": 1 << 50,
	"EB":  1000 * 1000 * 1000 * 1000 * 1000 * 1000,
	"E":   1 << 60,
	"EiB": 1 << 60,
}

// ParseSize parses a dd size: a decimal number with an optional unit
// suffix (c w b kB K MB M GB G ... and KiB MiB ... spellings), or a
// product of such numbers joined by 'x', as in 2x512.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty size", ErrInvalidNumber)
	}
	total := int64(1)
	for _, factor := range strings.Split(s, "x") {
		n, err := parseFactor(factor)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", err, s)
		}
		if n != 0 && total > math.MaxInt64/n {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidNumber, s)
		}
		total *= n
	}
	return total, nil
}

func parseFactor(s string) (int64, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, ErrInvalidNumber
	}
	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, ErrInvalidNumber
	}
	mult, ok := multipliers[s[i:]]
	if !ok {
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidNumber, s[i:])
	}
	if n != 0 && mult > math.MaxInt64/n {
		return 0, ErrInvalidNumber
	}
	return n * mult, nil
}
