package transfer

import "stockledger/internal/core/numerator"

// RecorderType names transfers in the stock journal.
const RecorderType = "Transfer"

// NumberConfig is the TRF-YYYY-NNNNN layout.
func NumberConfig() numerator.Config {
	return numerator.DefaultConfig("TRF")
}
