// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package crowdfund

import (
	"math/big"
	"strings"
)

// EtherDecimals is the precision of the native unit: 1 ether = 10^18 wei.
const EtherDecimals = 18

// Ether returns n ether in wei.
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Pow10(EtherDecimals))
}

// Gwei returns n gwei in wei.
func Gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Pow10(9))
}

func Pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ParseAmount parses a non-negative decimal integer, e.g. a wei amount.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, NewError(KindInvalidArgument, "empty amount")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, NewError(KindInvalidArgument, "amount is not a decimal integer")
	}
	if v.Sign() < 0 {
		return nil, NewError(KindInvalidArgument, "negative amount")
	}
	return v, nil
}

// ParseFixed parses a decimal string like "2000.5" into an integer scaled by
// 10^decimals. Extra fractional digits are truncated.
func ParseFixed(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, NewError(KindInvalidArgument, "empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, NewError(KindInvalidArgument, "negative amount")
	}
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))
	return ParseAmount(whole + frac)
}

func ParseEther(s string) (*big.Int, error) {
	return ParseFixed(s, EtherDecimals)
}

// FormatFixed renders v scaled by 10^decimals without trailing zeros.
func FormatFixed(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	digits := new(big.Int).Abs(v).String()
	sign := ""
	if v.Sign() < 0 {
		sign = "-"
	}
	if decimals == 0 {
		return sign + digits
	}
	if len(digits) <= int(decimals) {
		digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
	}
	cut := len(digits) - int(decimals)
	whole, frac := digits[:cut], strings.TrimRight(digits[cut:], "0")
	if frac == "" {
		return sign + whole
	}
	return sign + whole + "." + frac
}

func FormatEther(v *big.Int) string {
	return FormatFixed(v, EtherDecimals)
}
