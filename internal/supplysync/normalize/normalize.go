package normalize

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"strings"
)

// Decimal places used by the ledger contract.
const (
	QuoteDecimals = 6  // USDC amounts
	AssetDecimals = 18 // asset units
	PriceDecimals = 18 // price fixed-point
)

// DecodeTicker turns the byte-encoded symbol the contract emits into a
// printable string, stripping trailing zero padding. It never fails: if
// the payload isn't valid hex, or decodes to something non-printable,
// the raw input comes back unchanged so one malformed ticker can't block
// the rest of the batch.
func DecodeTicker(raw string) string {
	s := strings.TrimSpace(raw)
	h := strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(h)
	if err != nil {
		return raw
	}
	b = bytes.TrimRight(b, "\x00")
	if len(b) == 0 {
		return raw
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return raw
		}
	}
	return string(b)
}

// ScaleAmount converts an unscaled integer string to a decimal display
// string ("1500000" at 6 decimals -> "1.5"). Display only: persistence
// and ledger submission always use the unscaled form. A value that does
// not parse as an integer is returned as-is.
func ScaleAmount(unscaled string, decimals int) string {
	s := strings.TrimSpace(unscaled)
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return unscaled
	}
	if decimals <= 0 {
		return n.String()
	}

	neg := n.Sign() < 0
	n.Abs(n)

	div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	q, r := new(big.Int).QuoRem(n, div, new(big.Int))

	out := q.String()
	frac := r.String()
	if len(frac) < decimals {
		frac = strings.Repeat("0", decimals-len(frac)) + frac
	}
	frac = strings.TrimRight(frac, "0")
	if frac != "" {
		out += "." + frac
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}
