package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount renders d with two decimals and Indian digit grouping,
// e.g. 275451 is "2,75,451.00".
func FormatAmount(d decimal.Decimal) string {
	return groupIndian(Round2(d).StringFixed(2))
}

// FormatQuantity renders d with up to three decimals and no trailing zeros.
func FormatQuantity(d decimal.Decimal) string {
	return groupIndian(d.Round(3).String())
}

// FormatPercent renders a percentage such as 10 or 2.5 without trailing zeros.
func FormatPercent(d decimal.Decimal) string {
	return d.Round(2).String() + "%"
}

// groupIndian inserts separators into the integer part of a plain decimal
// string: the last three digits form one group, the rest group in pairs.
func groupIndian(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return sign + intPart + frac
	}

	head, tail := intPart[:len(intPart)-3], intPart[len(intPart)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return sign + strings.Join(groups, ",") + "," + tail + frac
}
