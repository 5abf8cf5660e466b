package core

import (
	"strconv"

	"punchclock.service/internal/core/model"
)

// WeeklyHours sums worked hours over an ascending-by-timestamp punch
// sequence by walking it two entries at a time: the even-index entry opens a
// session, the odd-index entry closes it. Pairing is positional and ignores
// the type field, matching the stored ordering semantics the rest of the
// system assumes (strict in/out alternation). An unmatched trailing entry
// (an open session) contributes nothing. Negative durations from skewed
// clocks are summed verbatim, not clamped.
func WeeklyHours(punches []model.Punch) float64 {
	var total float64
	for i := 0; i+1 < len(punches); i += 2 {
		total += punches[i+1].Timestamp.Sub(punches[i].Timestamp).Hours()
	}
	return total
}

// FormatHours renders a total as a fixed two-decimal string, e.g. "7.00".
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', 2, 64)
}
