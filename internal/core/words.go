package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ones = []string{
		"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
		"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
		"Seventeen", "Eighteen", "Nineteen",
	}
	tens = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

// AmountInWords spells a rupee amount using the Indian numbering system,
// e.g. 275451 is "Two Lakh Seventy Five Thousand Four Hundred Fifty One Only".
// Paise are read as "and N Paise". Negative amounts are prefixed "Minus".
func AmountInWords(amount decimal.Decimal) string {
	amount = Round2(amount)
	prefix := ""
	if amount.IsNegative() {
		prefix = "Minus "
		amount = amount.Neg()
	}

	rupees := amount.Truncate(0)
	paise := amount.Sub(rupees).Mul(hundred).IntPart()

	words := integerWords(rupees.BigInt().Uint64())
	if words == "" {
		words = "Zero"
	}
	if paise > 0 {
		words += " and " + integerWords(uint64(paise)) + " Paise"
	}
	return prefix + words + " Only"
}

// integerWords spells n with crore, lakh, thousand and hundred groups.
// Amounts of a hundred crore or more spell the crore count recursively.
func integerWords(n uint64) string {
	if n == 0 {
		return ""
	}

	var parts []string
	if crore := n / 10000000; crore > 0 {
		parts = append(parts, integerWords(crore), "Crore")
		n %= 10000000
	}
	if lakh := n / 100000; lakh > 0 {
		parts = append(parts, belowHundred(lakh), "Lakh")
		n %= 100000
	}
	if thousand := n / 1000; thousand > 0 {
		parts = append(parts, belowHundred(thousand), "Thousand")
		n %= 1000
	}
	if hundreds := n / 100; hundreds > 0 {
		parts = append(parts, ones[hundreds], "Hundred")
		n %= 100
	}
	if n > 0 {
		parts = append(parts, belowHundred(n))
	}
	return strings.Join(parts, " ")
}

func belowHundred(n uint64) string {
	if n < 20 {
		return ones[n]
	}
	w := tens[n/10]
	if n%10 > 0 {
		w += " " + ones[n%10]
	}
	return w
}
