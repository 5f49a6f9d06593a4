package cart

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseQuantity accepts a JSON number or a numeric string. Fractions are
// truncated and strings are read up to the first non-digit, so "3 boxes" is 3.
func ParseQuantity(v any) (int, error) {
	switch q := v.(type) {
	case float64:
		if math.IsNaN(q) || math.IsInf(q, 0) {
			return 0, fmt.Errorf("quantity %v is not a number", q)
		}
		return int(math.Trunc(q)), nil
	case int:
		return q, nil
	case json.Number:
		return ParseQuantity(q.String())
	case string:
		return parseLeadingInt(q)
	default:
		return 0, fmt.Errorf("quantity of type %T is not a number", v)
	}
}

func parseLeadingInt(s string) (int, error) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, fmt.Errorf("quantity %q is not a number", s)
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, fmt.Errorf("quantity %q: %w", s, err)
	}
	return n, nil
}
