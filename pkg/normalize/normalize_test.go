package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_Creditor(t *testing.T) {
	n := New()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty input", "", ""},
		{"whitespace only", "   ", ""},
		{"lowercases and trims", "  CHASE  ", "chase"},
		{"strips punctuation", "Chase, N.A.", "chase n a"},
		{"keeps two tokens intact", "Chase Bank", "chase bank"},
		{"abbreviates bank of america", "Bank of America", "boa"},
		{"abbreviates jpmorgan chase", "JPMorgan Chase", "chase"},
		{"abbreviates capital one", "Capital One", "cap1"},
		{"abbreviates synchrony", "SYNCHRONY BANK", "syncb"},
		{"abbreviates us bank long form", "US Bank National Association", "us bank"},
		{"drops filler when more than two tokens", "Portfolio Recovery Associates, LLC", "portfolio recovery"},
		{"drops filler around brand token", "SYNCB/Amazon Credit Card", "syncb amazon"},
		{"keeps all tokens when everything is filler", "Credit Card Services", "credit card services"},
		{"collapses internal whitespace", "Wells   Fargo", "wells fargo"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, n.Creditor(tc.input))
		})
	}
}

func TestNormalizer_Creditor_Idempotent(t *testing.T) {
	n := New()

	inputs := []string{
		"Bank of America",
		"JPMorgan Chase",
		"Portfolio Recovery Associates, LLC",
		"Chase Bank",
		"Capital One Auto Finance",
		"Wells Fargo Bank",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			once := n.Creditor(input)
			assert.Equal(t, once, n.Creditor(once))
		})
	}
}

func TestNormalizer_Creditor_NeverLonger(t *testing.T) {
	n := New()

	inputs := []string{
		"Bank of America",
		"Chase Bank USA",
		"x",
		"American Express National Bank",
		"Discover Financial Services",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			assert.LessOrEqual(t, len(n.Creditor(input)), len(input))
		})
	}
}

func TestNormalizer_CreditorTokens(t *testing.T) {
	n := New()

	t.Run("drops single character tokens", func(t *testing.T) {
		assert.Equal(t, []string{"chase"}, n.CreditorTokens("Chase, N.A."))
	})

	t.Run("empty input yields no tokens", func(t *testing.T) {
		assert.Empty(t, n.CreditorTokens(""))
	})

	t.Run("tokens come from the normalized form", func(t *testing.T) {
		assert.Equal(t, []string{"boa"}, n.CreditorTokens("Bank of America"))
	})
}

func TestAccountDigits(t *testing.T) {
	assert.Equal(t, "1234", AccountDigits("****1234"))
	assert.Equal(t, "1234567890", AccountDigits("1234-5678-90"))
	assert.Equal(t, "", AccountDigits("xxxx"))
	assert.Equal(t, "", AccountDigits(""))
}

func TestAccountPrefixSuffix(t *testing.T) {
	assert.Equal(t, "1234", AccountPrefix("1234567890", 4))
	assert.Equal(t, "12", AccountPrefix("12", 4))
	assert.Equal(t, "", AccountPrefix("unknown", 4))
	assert.Equal(t, "7890", AccountSuffix("1234567890", 4))
	assert.Equal(t, "1234", AccountSuffix("xxxx-xxxx-xxxx-1234", 4))
}

func TestAccountUnknown(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"", true},
		{"  ", true},
		{"unknown", true},
		{"N/A", true},
		{"none", true},
		{"****", true},
		{"****1234", false},
		{"1234567890", false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, AccountUnknown(tc.input))
		})
	}
}

func TestAccountMasked(t *testing.T) {
	assert.True(t, AccountMasked("****1234"))
	assert.True(t, AccountMasked("xxxx-xxxx-xxxx-1234"))
	assert.True(t, AccountMasked("1234"), "four or fewer digits is a truncated number")
	assert.False(t, AccountMasked("1234567890"))
	assert.False(t, AccountMasked(""))
}

func TestDate(t *testing.T) {
	mar15 := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    string
		expected *time.Time
	}{
		{"us slash format", "03/15/2024", &mar15},
		{"iso format", "2024-03-15", &mar15},
		{"us dash format", "03-15-2024", &mar15},
		{"long month name", "March 15, 2024", &mar15},
		{"empty", "", nil},
		{"garbage", "sometime last year", nil},
		{"calendar invalid day", "02/30/2024", nil},
		{"calendar invalid month", "13/01/2024", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Date(tc.input)
			if tc.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tc.expected.Equal(*got), "expected %s, got %s", tc.expected, got)
		})
	}
}

func TestDate_MonthOnly(t *testing.T) {
	got := Date("03/2024")
	require.NotNil(t, got)
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.March, got.Month())
}

func TestCurrency(t *testing.T) {
	t.Run("plain amount", func(t *testing.T) {
		m := Currency("1234.56")
		require.True(t, m.IsSet())
		assert.True(t, m.Decimal.Equal(decimal.RequireFromString("1234.56")))
	})

	t.Run("symbol and thousands separators", func(t *testing.T) {
		m := Currency("$1,234.56")
		require.True(t, m.IsSet())
		assert.True(t, m.Decimal.Equal(decimal.RequireFromString("1234.56")))
	})

	t.Run("zero is set not unset", func(t *testing.T) {
		m := Currency("$0")
		require.True(t, m.IsSet())
		assert.True(t, m.Decimal.IsZero())
	})

	t.Run("empty is unset", func(t *testing.T) {
		assert.False(t, Currency("").IsSet())
	})

	t.Run("negative is unset", func(t *testing.T) {
		assert.False(t, Currency("-$50").IsSet())
	})

	t.Run("non numeric is unset", func(t *testing.T) {
		assert.False(t, Currency("N/A").IsSet())
		assert.False(t, Currency("balance pending").IsSet())
	})
}
