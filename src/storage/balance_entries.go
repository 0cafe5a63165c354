// backend/src/storage/balance_entries.go
package storage

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/username/finledger/backend/src/models"
)

var balanceEntriesHeader = []string{
	"Bank", "Account", "Date", "Balance", "Entered_Date",
	"Original_Balance", "Original_Currency",
}

// BalanceEntryStore persists the manual balance snapshots for
// non-transactional accounts.
type BalanceEntryStore struct {
	path string
}

func NewBalanceEntryStore(dataDir string) *BalanceEntryStore {
	return &BalanceEntryStore{path: filepath.Join(dataDir, "balance_entries.csv")}
}

func (s *BalanceEntryStore) Load() ([]models.BalanceEntry, error) {
	index, records, err := readTable(s.path)
	if err != nil {
		return nil, err
	}

	entries := make([]models.BalanceEntry, 0, len(records))
	for n, record := range records {
		var e models.BalanceEntry
		e.Bank = field(record, index, "Bank")
		e.Account = field(record, index, "Account")
		if e.Date, err = parseDate(field(record, index, "Date")); err != nil {
			return nil, fmt.Errorf("balance entry row %d: %w", n+1, err)
		}
		if e.Balance, err = parseFloat(field(record, index, "Balance")); err != nil {
			return nil, fmt.Errorf("balance entry row %d: %w", n+1, err)
		}
		if e.EnteredDate, err = parseDate(field(record, index, "Entered_Date")); err != nil {
			return nil, fmt.Errorf("balance entry row %d: %w", n+1, err)
		}
		if e.OriginalBalance, err = parseFloatPtr(field(record, index, "Original_Balance")); err != nil {
			return nil, fmt.Errorf("balance entry row %d: %w", n+1, err)
		}
		currency := field(record, index, "Original_Currency")
		if !isNull(currency) {
			e.OriginalCurrency = currency
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *BalanceEntryStore) Save(entries []models.BalanceEntry) error {
	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, []string{
			e.Bank,
			e.Account,
			formatDate(e.Date),
			formatFloat(e.Balance),
			formatTimestamp(e.EnteredDate),
			formatFloatPtr(e.OriginalBalance),
			e.OriginalCurrency,
		})
	}
	return writeTable(s.path, balanceEntriesHeader, records)
}

// Upsert adds the entry, replacing an existing snapshot for the same
// bank+account+date.
func (s *BalanceEntryStore) Upsert(entry models.BalanceEntry) error {
	entries, err := s.Load()
	if err != nil {
		return err
	}

	replaced := false
	for i, e := range entries {
		if e.Bank == entry.Bank && e.Account == entry.Account && e.Date.Equal(entry.Date) {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Bank != entries[j].Bank {
			return entries[i].Bank < entries[j].Bank
		}
		if entries[i].Account != entries[j].Account {
			return entries[i].Account < entries[j].Account
		}
		return entries[i].Date.Before(entries[j].Date)
	})
	return s.Save(entries)
}

// Remove deletes the snapshot for bank+account+date, if present.
func (s *BalanceEntryStore) Remove(bank, account string, date time.Time) error {
	entries, err := s.Load()
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.Bank == bank && e.Account == account && e.Date.Equal(date) {
			continue
		}
		kept = append(kept, e)
	}
	return s.Save(kept)
}
