package market

import (
	"fmt"
	"regexp"
	"strings"
)

// symbolPattern matches a six-digit code, a dot, and the exchange suffix.
var symbolPattern = regexp.MustCompile(`^\d{6}\.(SH|SZ)$`)

// exchangePrefixes maps the leading three digits of a code to its exchange.
var exchangePrefixes = map[string]string{
	"600": "SH", "601": "SH", "603": "SH", "605": "SH", "688": "SH",
	"000": "SZ", "001": "SZ", "002": "SZ", "003": "SZ", "300": "SZ", "301": "SZ",
}

// ValidateSymbol checks the shape of a full symbol like "600519.SH".
// Exchange membership of the code prefix is not checked here; that belongs
// to suffix derivation (see ExchangeForCode).
func ValidateSymbol(symbol string) error {
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return nil
}

// ExchangeForCode derives the exchange suffix from a bare six-digit code.
func ExchangeForCode(code string) (string, error) {
	if len(code) < 3 {
		return "", fmt.Errorf("%w: code %q", ErrUnknownExchange, code)
	}
	if ex, ok := exchangePrefixes[code[:3]]; ok {
		return ex, nil
	}
	return "", fmt.Errorf("%w: code %q", ErrUnknownExchange, code)
}

// SymbolForCode builds the full symbol for a bare code, e.g. "600519" →
// "600519.SH".
func SymbolForCode(code string) (string, error) {
	ex, err := ExchangeForCode(code)
	if err != nil {
		return "", err
	}
	return code + "." + ex, nil
}

// BareCode strips the exchange suffix: "600519.SH" → "600519".
func BareCode(symbol string) string {
	if i := strings.IndexByte(symbol, '.'); i >= 0 {
		return symbol[:i]
	}
	return symbol
}
