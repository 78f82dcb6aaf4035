package format

import "fmt"

// MinSequenceWidth is the zero padding applied to the sequence part.
const MinSequenceWidth = 3

// FormatQuotationNumber renders prefix followed by next, zero padded to at
// least three digits. Wider sequences are never truncated.
//
// This function is pure: it touches neither the database nor the clock.
func FormatQuotationNumber(prefix string, next int64) string {
	return fmt.Sprintf("%s%0*d", prefix, MinSequenceWidth, next)
}
