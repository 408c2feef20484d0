package numerator

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Format renders a sequence value, e.g. Format(NCRConfig(), t, 7) == "NCR-2025-007".
func Format(cfg Config, at time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}
	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%04d-%0*d", cfg.Prefix, at.Year(), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

// Parse extracts the sequence value from a formatted number.
// Returns -1 if the number does not match PREFIX[-YYYY]-N.
func Parse(formatted string) int64 {
	idx := strings.LastIndex(formatted, "-")
	if idx < 0 || idx == len(formatted)-1 {
		return -1
	}
	n, err := strconv.ParseInt(formatted[idx+1:], 10, 64)
	if err != nil {
		return -1
	}
	return n
}
