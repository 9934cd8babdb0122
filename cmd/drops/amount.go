package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"
)

var weiPerEther = new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// parseAmount reads a wei amount. A trailing "ether" or "eth" scales a
// decimal value by 1e18; the result must still be a whole number of wei.
func parseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	unit := new(big.Rat).SetInt64(1)
	for _, suffix := range []string{"ether", "eth", "wei"} {
		if strings.HasSuffix(s, suffix) {
			if suffix != "wei" {
				unit = weiPerEther
			}
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok || s == "" {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	r.Mul(r, unit)
	if !r.IsInt() || r.Sign() < 0 {
		return nil, fmt.Errorf("amount %q is not a whole non-negative number of wei", s)
	}
	return new(big.Int).Set(r.Num()), nil
}

// parseTime reads a unix timestamp or an RFC 3339 time. Empty means fallback.
func parseTime(s string, fallback int64) (int64, error) {
	if s == "" {
		return fallback, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: want unix seconds or RFC 3339", s)
	}
	return t.Unix(), nil
}

func parseID(s, what string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return n, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
