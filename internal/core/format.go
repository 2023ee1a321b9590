// Package core provides the ledger domain types together with money
// rounding and display formatting utilities.
//
// Amounts are rupee values held as float64; RoundMoney centralizes the
// two-decimal half-up rounding applied whenever an amount is derived.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RoundMoney rounds an amount to two decimal places, half away from zero.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatCurrency renders an amount as an Indian-formatted rupee string.
//
// Examples:
//
//	FormatCurrency(1200)      -> "₹ 1,200.00"
//	FormatCurrency(123456.7)  -> "₹ 1,23,456.70"
func FormatCurrency(amount float64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	paise := int64(math.Round(amount * 100))
	whole := paise / 100
	frac := paise % 100
	s := "₹ " + groupIndian(strconv.FormatInt(whole, 10)) + fmt.Sprintf(".%02d", frac)
	if neg {
		return "-" + s
	}
	return s
}

// groupIndian inserts en-IN digit grouping: the last three digits form one
// group, every group before that has two digits.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)
	return strings.Join(groups, ",") + "," + tail
}

// FormatDate renders a timestamp as a short human-readable date,
// e.g. "Feb 21, 2026". Zero times render as an empty string.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// PercentChange returns the integer percentage change from old to new.
// A zero old value yields 0.
func PercentChange(oldVal, newVal float64) int {
	if oldVal == 0 {
		return 0
	}
	return int(math.Round((newVal - oldVal) / oldVal * 100))
}
