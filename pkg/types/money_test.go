package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRoundHalfUp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"10.005", "10.01"},
		{"10.004", "10"},
		{"0.125", "0.13"},
		{"999.999", "1000"},
	}
	for _, tc := range cases {
		got := RoundHalfUp(decimal.RequireFromString(tc.in))
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("RoundHalfUp(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestPaiseRoundTrip(t *testing.T) {
	t.Parallel()

	amount := decimal.RequireFromString("1299.50")
	paise := PaiseFromDecimal(amount)
	if paise != 129950 {
		t.Fatalf("paise = %d, want 129950", paise)
	}
	if !DecimalFromPaise(paise).Equal(amount) {
		t.Fatalf("round trip mismatch: %s", DecimalFromPaise(paise))
	}
}

func TestPaiseFromDecimalRoundsHalfUp(t *testing.T) {
	t.Parallel()

	if got := PaiseFromDecimal(decimal.RequireFromString("1.005")); got != 101 {
		t.Fatalf("paise = %d, want 101", got)
	}
}
