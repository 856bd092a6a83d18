package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatTokens translates the value in indivisible units into a user-friendly form taking into account
// decimals according to the scheme (# ### or #.##)
func FormatTokens(amount *big.Int, decimals int32, symbol string) string {
	if amount == nil {
		amount = new(big.Int)
	}
	x := decimal.NewFromBigInt(amount, -1*decimals)
	x = truncate(x, 3)
	sign := ""
	if x.IsNegative() {
		sign = "-"
		x = x.Abs()
	}
	intPart := formatIntPart(x.Truncate(0).BigInt())
	parts := strings.Split(x.String(), ".")
	if len(parts) != 2 {
		return fmt.Sprintf("%s%s %s", sign, intPart, symbol)
	}
	return fmt.Sprintf("%s%s.%s %s", sign, intPart, parts[1], symbol)
}

// ParseTokens converts a decimal token amount such as "100" or "0.5" into indivisible units.
func ParseTokens(s string, decimals int32) (*big.Int, error) {
	x, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid token amount %q: %w", s, err)
	}
	if x.IsNegative() {
		return nil, fmt.Errorf("negative token amount %q", s)
	}
	shifted := x.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("token amount %q has more than %d decimals", s, decimals)
	}
	return shifted.BigInt(), nil
}

// Tokens returns n whole tokens in indivisible units.
func Tokens(n int64, decimals int32) *big.Int {
	return decimal.New(n, decimals).BigInt()
}

func truncate(d decimal.Decimal, n int32) decimal.Decimal {
	if n <= 0 {
		return d.Truncate(n)
	}
	if d.IsZero() {
		return decimal.Zero
	}
	dn := decimal.New(1, n-1)
	if d.Abs().GreaterThanOrEqual(dn) {
		return d.Truncate(0)
	}
	for i := int32(0); i < 32; i++ {
		if d.Abs().Shift(i).GreaterThanOrEqual(dn) {
			return d.Truncate(i)
		}
	}
	return d
}

func formatIntPart(n *big.Int) string {
	s := n.String()
	length := len(s)
	if length <= 3 {
		return s
	}
	var result []string
	for length > 3 {
		result = append([]string{s[length-3:]}, result...)
		length -= 3
	}
	result = append([]string{s[:length]}, result...)
	return strings.Join(result, " ")
}
