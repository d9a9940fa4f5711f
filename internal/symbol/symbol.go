// Package symbol builds OpenAlgo canonical instrument identifiers for
// equities, futures and options.
package symbol

import (
	"fmt"
	"strconv"
	"strings"
)

var monthNames = [...]string{
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

// ErrValidation marks a missing or malformed instrument field.
type ErrValidation struct {
	Field  string
	Reason string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Equity returns the canonical equity identifier (the upper-cased base).
func Equity(base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", &ErrValidation{Field: "symbol", Reason: "must not be empty"}
	}
	return strings.ToUpper(base), nil
}

// Future builds a futures identifier: BASE + [dd] + MMM + yy + "FUT",
// e.g. BANKNIFTY24APR24FUT, USDINR10MAY24FUT. Day 0 omits the day part
// for monthly contracts.
func Future(base string, day, month, year int) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", &ErrValidation{Field: "symbol", Reason: "must not be empty"}
	}
	datePart := ""
	if day != 0 {
		if day < 1 || day > 31 {
			return "", &ErrValidation{Field: "expiry day", Reason: "must be between 1 and 31"}
		}
		datePart = strconv.Itoa(day)
	}
	mmm, err := monthName(month)
	if err != nil {
		return "", err
	}
	yy, err := shortYear(year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s%s%sFUT", strings.ToUpper(base), datePart, mmm, yy), nil
}

// Option builds an options identifier: BASE + dd + MMM + yy + strike + CE|PE,
// e.g. NIFTY28MAR2420800CE. The strike drops a trailing ".0".
func Option(base string, day, month, year int, strike float64, optionType string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", &ErrValidation{Field: "symbol", Reason: "must not be empty"}
	}
	if day < 1 || day > 31 {
		return "", &ErrValidation{Field: "expiry day", Reason: "must be between 1 and 31"}
	}
	mmm, err := monthName(month)
	if err != nil {
		return "", err
	}
	yy, err := shortYear(year)
	if err != nil {
		return "", err
	}
	if strike <= 0 {
		return "", &ErrValidation{Field: "strike", Reason: "must be positive"}
	}
	optType, err := normalizeOptionType(optionType)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d%s%s%s%s", strings.ToUpper(base), day, mmm, yy, formatStrike(strike), optType), nil
}

// Indices returns the common index symbols for an index exchange.
func Indices(exchange string) []string {
	switch strings.ToUpper(strings.TrimSpace(exchange)) {
	case "NSE_INDEX":
		return []string{"NIFTY", "BANKNIFTY", "FINNIFTY", "NIFTYNXT50", "MIDCPNIFTY", "INDIAVIX"}
	case "BSE_INDEX":
		return []string{"SENSEX", "BANKEX", "SENSEX50"}
	default:
		return nil
	}
}

func shortYear(year int) (string, error) {
	switch {
	case year >= 2000:
		return fmt.Sprintf("%02d", year-2000), nil
	case year >= 0 && year <= 99:
		return fmt.Sprintf("%02d", year), nil
	default:
		return "", &ErrValidation{Field: "expiry year", Reason: "must be a 2-digit or 20xx year"}
	}
}

func monthName(month int) (string, error) {
	if month < 1 || month > 12 {
		return "", &ErrValidation{Field: "expiry month", Reason: "must be between 1 and 12"}
	}
	return monthNames[month-1], nil
}

func normalizeOptionType(optionType string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(optionType)) {
	case "C", "CALL", "CE":
		return "CE", nil
	case "P", "PUT", "PE":
		return "PE", nil
	default:
		return "", &ErrValidation{Field: "option type", Reason: "must be one of CE, PE, CALL, PUT, C, P"}
	}
}

// formatStrike renders whole-number strikes without a decimal point.
func formatStrike(strike float64) string {
	if strike == float64(int64(strike)) {
		return strconv.FormatInt(int64(strike), 10)
	}
	return strconv.FormatFloat(strike, 'f', -1, 64)
}
