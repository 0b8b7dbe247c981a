package token

import "strings"

// Class is one member of the closed set of mintable/burnable symbols.
// An event whose ticker is outside this set never reaches the ledger
// mutator.
type Class int

const (
	USD Class = iota
	USDC
	LQD
	TSLA
	AAPL
)

func (c Class) Symbol() string {
	switch c {
	case USD:
		return "USD"
	case USDC:
		return "USDC"
	case LQD:
		return "LQD"
	case TSLA:
		return "TSLA"
	case AAPL:
		return "AAPL"
	}
	// Adding a Class constant without extending this switch is a
	// programming error; fail loudly rather than mint under a bad symbol.
	panic("token: unmapped class")
}

func All() []Class {
	return []Class{USD, USDC, LQD, TSLA, AAPL}
}

// Resolve maps a normalized ticker to its Class by exact,
// case-insensitive match.
func Resolve(ticker string) (Class, bool) {
	switch strings.ToUpper(strings.TrimSpace(ticker)) {
	case "USD":
		return USD, true
	case "USDC":
		return USDC, true
	case "LQD":
		return LQD, true
	case "TSLA":
		return TSLA, true
	case "AAPL":
		return AAPL, true
	}
	return 0, false
}
