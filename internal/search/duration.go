package search

import (
	"math"
	"strings"

	apperrors "github.com/spec-kit/ticketmanager/pkg/util/errorutil"
)

var unitSeconds = map[rune]int64{
	'y': 31556952,
	'w': 604800,
	'd': 86400,
	'h': 3600,
	'm': 60,
	's': 1,
}

// ParseDuration converts a relative time such as "1w2d" into seconds.
// Unknown unit characters contribute zero. Digits with no trailing unit
// are ignored.
func ParseDuration(raw string) (int64, error) {
	var total, pending int64
	digits := false

	for _, r := range strings.ToLower(raw) {
		if r >= '0' && r <= '9' {
			if pending > (math.MaxInt64-int64(r-'0'))/10 {
				return 0, apperrors.NewInvalidInput("duration out of range", map[string]any{"value": raw})
			}
			pending = pending*10 + int64(r-'0')
			digits = true
			continue
		}

		unit, known := unitSeconds[r]
		if !known {
			pending, digits = 0, false
			continue
		}
		if !digits {
			return 0, apperrors.NewInvalidInput("duration unit without amount", map[string]any{"value": raw, "unit": string(r)})
		}
		if pending > math.MaxInt64/unit || total > math.MaxInt64-pending*unit {
			return 0, apperrors.NewInvalidInput("duration out of range", map[string]any{"value": raw})
		}
		total += pending * unit
		pending, digits = 0, false
	}
	return total, nil
}
