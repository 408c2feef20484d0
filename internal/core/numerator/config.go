// Package numerator provides domain contracts for document auto-numbering.
package numerator

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "NCR", "DLV")
	Prefix string

	// IncludeYear adds year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int
}

// DefaultConfig returns the yearly PREFIX-YYYY-NNNNN layout used by stock documents.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
	}
}

// NCRConfig is the NCR-YYYY-NNN layout. Sequences restart every calendar year.
func NCRConfig() Config {
	return Config{
		Prefix:      "NCR",
		IncludeYear: true,
		PadWidth:    3,
	}
}
