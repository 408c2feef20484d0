package issue

import "stockledger/internal/core/numerator"

// RecorderType names issues in the stock journal.
const RecorderType = "Issue"

// NumberConfig is the ISS-YYYY-NNNNN layout.
func NumberConfig() numerator.Config {
	return numerator.DefaultConfig("ISS")
}
