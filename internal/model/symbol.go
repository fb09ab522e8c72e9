package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrBadSymbol indicates a contract symbol that does not follow the
// OCC format <root><YYMMDD><C|P><strike*1000, 8 digits>.
var ErrBadSymbol = errors.New("malformed contract symbol")

// FormatSymbol builds an OCC-style symbol from contract identity parts.
func FormatSymbol(underlying, expiration string, right OptionRight, strike float64) (string, error) {
	exp, err := time.Parse("2006-01-02", expiration)
	if err != nil {
		return "", fmt.Errorf("format symbol: %w", err)
	}
	milli := int64(math.Round(strike * 1000))
	return fmt.Sprintf("%s%s%s%08d",
		strings.ToUpper(underlying), exp.Format("060102"), right, milli), nil
}

// ParseSymbol splits an OCC-style symbol into its identity parts.
// A leading "O:" feed prefix is accepted and stripped.
func ParseSymbol(symbol string) (underlying, expiration string, right OptionRight, strike float64, err error) {
	s := strings.TrimPrefix(symbol, "O:")

	// Minimum: 1-char root + 6-digit date + right + 8-digit strike.
	if len(s) < 16 {
		return "", "", "", 0, ErrBadSymbol
	}

	strikePart := s[len(s)-8:]
	rightPart := s[len(s)-9 : len(s)-8]
	datePart := s[len(s)-15 : len(s)-9]
	root := s[:len(s)-15]

	if root == "" {
		return "", "", "", 0, ErrBadSymbol
	}

	switch rightPart {
	case "C":
		right = Call
	case "P":
		right = Put
	default:
		return "", "", "", 0, ErrBadSymbol
	}

	exp, perr := time.Parse("060102", datePart)
	if perr != nil {
		return "", "", "", 0, ErrBadSymbol
	}

	milli, perr := strconv.ParseInt(strikePart, 10, 64)
	if perr != nil {
		return "", "", "", 0, ErrBadSymbol
	}

	return root, exp.Format("2006-01-02"), right, float64(milli) / 1000, nil
}
