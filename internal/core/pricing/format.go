package pricing

import (
	"fmt"
	"math"
	"strings"
)

// FormatPrice renders an amount in rupees with Indian digit grouping,
// e.g. 125000.5 -> "₹1,25,000.50". Presentation only.
func FormatPrice(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	paise := int64(math.Round(amount * 100))
	whole := fmt.Sprintf("%d", paise/100)
	frac := paise % 100

	return fmt.Sprintf("%s₹%s.%02d", sign, groupIndian(whole), frac)
}

// groupIndian groups the last three digits, then pairs (lakh/crore style).
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(append(parts, tail), ",")
}
