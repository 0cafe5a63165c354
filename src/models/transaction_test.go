// backend/src/models/transaction_test.go
package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestTransactionKeyIsStable(t *testing.T) {
	balance := 95.50
	tx := Transaction{
		TransactionDate: date("2024-01-05"),
		Bank:            "BankA",
		Account:         "BankA Checking",
		Description:     "STARBUCKS #123",
		Amount:          -4.50,
		Balance:         &balance,
	}

	first := tx.Key()
	second := tx.Key()
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestTransactionKeyDistinguishesBalance(t *testing.T) {
	b1, b2 := 95.50, 91.00
	tx1 := Transaction{
		TransactionDate: date("2024-01-05"),
		Bank:            "BankA",
		Account:         "BankA Checking",
		Description:     "STARBUCKS #123",
		Amount:          -4.50,
		Balance:         &b1,
	}
	tx2 := tx1
	tx2.Balance = &b2

	assert.NotEqual(t, tx1.Key(), tx2.Key())

	tx3 := tx1
	tx3.Balance = nil
	assert.NotEqual(t, tx1.Key(), tx3.Key())
}

func TestTransactionKeyIgnoresCategorization(t *testing.T) {
	tx := Transaction{
		TransactionDate: date("2024-03-01"),
		Bank:            "BankA",
		Account:         "BankA Checking",
		Description:     "AMAZON MARKETPLACE",
		Amount:          -19.99,
	}
	recolored := tx
	recolored.Category = "Shopping"
	recolored.SubCategory = "Online"
	recolored.Type = TypeOut

	assert.Equal(t, tx.Key(), recolored.Key())
}

func TestTypeForAmount(t *testing.T) {
	assert.Equal(t, TypeIn, TypeForAmount(10.0))
	assert.Equal(t, TypeOut, TypeForAmount(-10.0))
	assert.Equal(t, TypeOut, TypeForAmount(0))
}

func TestFormatAmountRoundTrips(t *testing.T) {
	for _, v := range []float64{-4.50, 0, 0.1, 1234.5678, -0.001} {
		s := FormatAmount(v)
		assert.NotContains(t, s, "e", "amount must be plain decimal: %s", s)
	}
	assert.Equal(t, "-4.5", FormatAmount(-4.50))
	assert.Equal(t, "0", FormatAmount(0))
}

func TestRulePriority(t *testing.T) {
	tests := []struct {
		pattern      string
		wantPriority int
		wantWildcard bool
	}{
		{"AMAZON*", 7, true},
		{"*AMAZON*", 8, true},
		{"AMAZON", 106, false},
		{"AMAZON MARKETPLACE", 118, false},
	}
	for _, tt := range tests {
		priority, wildcard := RulePriority(tt.pattern)
		assert.Equal(t, tt.wantPriority, priority, "pattern %q", tt.pattern)
		assert.Equal(t, tt.wantWildcard, wildcard, "pattern %q", tt.pattern)
	}
}

func TestParseCategorySource(t *testing.T) {
	refs := ParseCategorySource("(Savings,Transfers)|(Investments,Broker Deposit)")
	require.Len(t, refs, 2)
	assert.Equal(t, CategoryRef{Category: "Savings", SubCategory: "Transfers"}, refs[0])
	assert.Equal(t, CategoryRef{Category: "Investments", SubCategory: "Broker Deposit"}, refs[1])

	assert.Nil(t, ParseCategorySource(""))
	assert.Nil(t, ParseCategorySource("   "))

	// Malformed segments are dropped, valid ones kept.
	refs = ParseCategorySource("(A,B)|broken|(C,D,E)|(F,G)")
	require.Len(t, refs, 2)
	assert.Equal(t, "F", refs[1].Category)
}

func TestFormatCategorySourceRoundTrip(t *testing.T) {
	refs := []CategoryRef{{Category: "Savings", SubCategory: "Transfers"}, {Category: "A", SubCategory: "B"}}
	assert.Equal(t, refs, ParseCategorySource(FormatCategorySource(refs)))
}

func TestAmountOverrideKey(t *testing.T) {
	assert.Equal(t, AmountOverrideKey("COFFEE", -4.5), AmountOverrideKey("COFFEE", -4.50))
	assert.NotEqual(t, AmountOverrideKey("COFFEE", -4.5), AmountOverrideKey("COFFEE", -4.51))
	assert.NotEqual(t, AmountOverrideKey("COFFEE", -4.5), AmountOverrideKey("TEA", -4.5))
}
