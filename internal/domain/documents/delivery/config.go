package delivery

import "stockledger/internal/core/numerator"

// RecorderType names deliveries in the stock journal and the outbox.
const RecorderType = "Delivery"

// NumberConfig is the DLV-YYYY-NNNNN layout.
func NumberConfig() numerator.Config {
	return numerator.DefaultConfig("DLV")
}
