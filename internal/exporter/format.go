package exporter

import (
	"fmt"
)

// formatFloat formats a float64 value for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	// 187 is written as 187.00 to match the text report
	return fmt.Sprintf("%.2f", f)
}

// formatInt formats a count for CSV output
func formatInt(i int) string {
	return fmt.Sprintf("%d", i)
}
