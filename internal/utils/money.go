package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatPLN renders an amount as "1 234,50 zł".
func FormatPLN(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	whole, cents, _ := strings.Cut(amount.Abs().StringFixed(2), ".")
	return fmt.Sprintf("%s%s,%s zł", sign, groupThousands(whole), cents)
}

// ParseAmount accepts "12.50", "12,50" or "12,50 zł" and returns a non-negative amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimSuffix(s, "zł")
	s = strings.TrimSuffix(s, "pln")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return decimal.Zero, fmt.Errorf("invalid amount")
	}
	v, err := decimal.NewFromString(s)
	if err != nil || v.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func groupThousands(digits string) string {
	var out strings.Builder
	for i, c := range digits {
		if i != 0 && (len(digits)-i)%3 == 0 {
			out.WriteByte(' ')
		}
		out.WriteRune(c)
	}
	return out.String()
}
