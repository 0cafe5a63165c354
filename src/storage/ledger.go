// backend/src/storage/ledger.go
package storage

import (
	"fmt"
	"path/filepath"

	"github.com/username/finledger/backend/src/models"
)

// Column names match the consolidated_transactions.csv layout the tables have
// always used; renaming them would orphan existing data files.
var ledgerHeader = []string{
	"Transaction Date", "Effective Date", "Bank", "Account", "Transaction",
	"Type", "Amount", "Balance", "Category", "Sub-Category",
	"Source_File", "Source_RowNo", "Transaction_Source",
}

// LedgerStore persists the consolidated transaction ledger.
type LedgerStore struct {
	path string
}

func NewLedgerStore(dataDir string) *LedgerStore {
	return &LedgerStore{path: filepath.Join(dataDir, "consolidated_transactions.csv")}
}

// Load reads the whole ledger. A missing file yields an empty ledger.
func (s *LedgerStore) Load() ([]models.Transaction, error) {
	index, records, err := readTable(s.path)
	if err != nil {
		return nil, err
	}

	ledger := make([]models.Transaction, 0, len(records))
	for n, record := range records {
		tx, err := scanTransaction(record, index)
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: %w", n+1, err)
		}
		ledger = append(ledger, tx)
	}
	return ledger, nil
}

// Save atomically replaces the ledger.
func (s *LedgerStore) Save(ledger []models.Transaction) error {
	records := make([][]string, 0, len(ledger))
	for _, tx := range ledger {
		rowNo := ""
		if tx.SourceRowNo > 0 {
			rowNo = fmt.Sprintf("%d", tx.SourceRowNo)
		}
		records = append(records, []string{
			formatDate(tx.TransactionDate),
			formatDate(tx.EffectiveDate),
			tx.Bank,
			tx.Account,
			tx.Description,
			tx.Type,
			formatFloat(tx.Amount),
			formatFloatPtr(tx.Balance),
			tx.Category,
			tx.SubCategory,
			tx.SourceFile,
			rowNo,
			tx.Source,
		})
	}
	return writeTable(s.path, ledgerHeader, records)
}

func scanTransaction(record []string, index map[string]int) (models.Transaction, error) {
	var tx models.Transaction
	var err error

	if tx.TransactionDate, err = parseDate(field(record, index, "Transaction Date")); err != nil {
		return tx, err
	}
	if tx.EffectiveDate, err = parseDate(field(record, index, "Effective Date")); err != nil {
		return tx, err
	}
	tx.Bank = field(record, index, "Bank")
	tx.Account = field(record, index, "Account")
	tx.Description = field(record, index, "Transaction")
	tx.Type = field(record, index, "Type")
	if tx.Amount, err = parseFloat(field(record, index, "Amount")); err != nil {
		return tx, fmt.Errorf("amount: %w", err)
	}
	if tx.Balance, err = parseFloatPtr(field(record, index, "Balance")); err != nil {
		return tx, fmt.Errorf("balance: %w", err)
	}
	tx.Category = field(record, index, "Category")
	tx.SubCategory = field(record, index, "Sub-Category")
	tx.SourceFile = field(record, index, "Source_File")
	if tx.SourceRowNo, err = parseInt(field(record, index, "Source_RowNo")); err != nil {
		return tx, fmt.Errorf("source row: %w", err)
	}
	tx.Source = field(record, index, "Transaction_Source")
	return tx, nil
}
