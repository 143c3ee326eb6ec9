package commands

import (
	"fmt"
	"strings"
)

// formatMoney renders a dollar amount with thousands separators.
func formatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	// Round once on the total cents so fractions like 1.999 cannot carry
	// into a third cent digit
	totalCents := int64(v*100 + 0.5)
	whole := totalCents / 100
	cents := totalCents % 100

	digits := fmt.Sprintf("%d", whole)
	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)

	return fmt.Sprintf("%s$%s.%02d", sign, strings.Join(parts, ","), cents)
}

// printSeparator prints a visual separator.
func printSeparator() {
	fmt.Println(strings.Repeat("─", 60))
}

// printKeyValue prints an aligned key-value line.
func printKeyValue(key, value string) {
	fmt.Printf("%-18s %s\n", key+":", value)
}
