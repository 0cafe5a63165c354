// backend/src/models/transaction.go
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Transaction type of a ledger row, derived from the amount sign unless a
// mapping rule rewrites it.
const (
	TypeIn   = "In"
	TypeOut  = "Out"
	TypeNone = "None"
)

// Provenance of a ledger row.
const (
	SourceTypeFile      = "File"      // parsed from an uploaded bank export
	SourceTypeCaptured  = "Captured"  // mirror of a row, posted against a linked account
	SourceTypeSynthetic = "Synthetic" // generated balance adjustment
	SourceTypeFake      = "Fake"      // re-homed onto a fake account
)

const (
	CategoryUncategorized     = "Uncategorized"
	CategoryBalanceAdjustment = "Balance Adjustment"
)

// Transaction is a single row of the consolidated ledger. The zero value of
// the date fields marks an unparseable source date; Balance is nil when the
// source file reports none.
type Transaction struct {
	TransactionDate time.Time `json:"transaction_date"`
	EffectiveDate   time.Time `json:"effective_date"`
	Bank            string    `json:"bank"`
	Account         string    `json:"account"`
	Description     string    `json:"transaction"`
	Type            string    `json:"type"`   // "In", "Out" or "None"
	Amount          float64   `json:"amount"` // signed, in EUR
	Balance         *float64  `json:"balance,omitempty"`
	Category        string    `json:"category"`
	SubCategory     string    `json:"sub_category"`
	SourceFile      string    `json:"source_file,omitempty"`
	SourceRowNo     int       `json:"source_row_no,omitempty"`
	Source          string    `json:"transaction_source"`
}

// TypeForAmount returns the default transaction type for a signed amount.
func TypeForAmount(amount float64) string {
	if amount > 0 {
		return TypeIn
	}
	return TypeOut
}

// FormatAmount renders a float the way the CSV tables and the transaction key
// store it: the shortest decimal string that parses back to the same float64.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatDate renders a date for keys and persistence; the zero time becomes
// the empty string.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// Key returns the content hash identifying this transaction. It is the dedup
// identity for file-sourced rows and the key for instance-level overrides, so
// it must stay a pure function of the listed fields: same inputs, same key,
// across runs.
func (t Transaction) Key() string {
	balance := ""
	if t.Balance != nil {
		balance = FormatAmount(*t.Balance)
	}
	input := FormatDate(t.TransactionDate) + t.Bank + t.Account + t.Description +
		FormatAmount(t.Amount) + balance
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
