// backend/src/services/balance_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/username/finledger/backend/src/logger"
	"github.com/username/finledger/backend/src/models"
	"github.com/username/finledger/backend/src/storage"
)

// BalanceService manages manual balance snapshots for Balance-type accounts.
// Snapshots are stored in EUR; entries in other currencies are converted at
// the snapshot date.
type BalanceService struct {
	entries  *storage.BalanceEntryStore
	registry *storage.AccountRegistryStore
	rates    RateSource
}

func NewBalanceService(entries *storage.BalanceEntryStore, registry *storage.AccountRegistryStore, rates RateSource) *BalanceService {
	return &BalanceService{entries: entries, registry: registry, rates: rates}
}

// List returns all balance entries.
func (s *BalanceService) List() ([]models.BalanceEntry, error) {
	return s.entries.Load()
}

// Accounts returns the registrations with the given input mode.
func (s *BalanceService) Accounts(input string) ([]models.AccountRegistration, error) {
	return s.registry.ListAccounts(input)
}

// UpdateCategorySource rewrites one registration's mirrored category list.
func (s *BalanceService) UpdateCategorySource(bank, account string, refs []models.CategoryRef) error {
	return s.registry.UpdateCategorySource(bank, account, models.FormatCategorySource(refs))
}

// AddEntry upserts a balance snapshot. A non-EUR balance is converted at the
// snapshot date; when no rate is available the entry falls back to 1:1 so the
// snapshot is never lost, and the original amount and currency are kept for a
// later correction.
func (s *BalanceService) AddEntry(ctx context.Context, bank, account string, date time.Time, balance float64, currency string) (models.BalanceEntry, error) {
	if err := s.checkBalanceAccount(bank, account); err != nil {
		return models.BalanceEntry{}, err
	}
	if date.IsZero() {
		return models.BalanceEntry{}, fmt.Errorf("balance entry date is required")
	}

	entry := models.BalanceEntry{
		Bank:        bank,
		Account:     account,
		Date:        date,
		Balance:     balance,
		EnteredDate: time.Now(),
	}
	if currency != "" && currency != "EUR" {
		original := balance
		entry.OriginalBalance = &original
		entry.OriginalCurrency = currency

		rate, err := s.rates.Rate(ctx, date, currency, "EUR")
		if err != nil {
			logger.L.Warn("Exchange rate unavailable, storing balance 1:1",
				"bank", bank, "account", account, "currency", currency, "error", err)
			rate = 1.0
		}
		entry.Balance = original * rate
	}

	if err := s.entries.Upsert(entry); err != nil {
		return models.BalanceEntry{}, err
	}
	return entry, nil
}

// RemoveEntry deletes the snapshot for (bank, account, date).
func (s *BalanceService) RemoveEntry(bank, account string, date time.Time) error {
	return s.entries.Remove(bank, account, date)
}

func (s *BalanceService) checkBalanceAccount(bank, account string) error {
	accounts, err := s.registry.ListAccounts(models.InputBalance)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if a.Bank == bank && a.Account == account {
			return nil
		}
	}
	return fmt.Errorf("%w: %s/%s is not a Balance account", ErrUnknownAccount, bank, account)
}
