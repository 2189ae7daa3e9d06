package dashboard

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// FormatCount renders n with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatAmount renders v rounded to a whole number with thousands separators.
func FormatAmount(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return humanize.FormatFloat("#,###.", v)
}

// FormatPercent renders v with one decimal and a percent sign.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
