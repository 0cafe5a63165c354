// backend/src/synthesis/synthesis.go

// Package synthesis generates the ledger rows that no bank file reports:
// transfers re-homed onto fake accounts, captured mirrors posted against
// linked accounts, and synthetic balance adjustments reconciling manual
// snapshots against running sums.
package synthesis

import (
	"fmt"
	"sort"

	"github.com/username/finledger/backend/src/logger"
	"github.com/username/finledger/backend/src/models"
	"github.com/username/finledger/backend/src/storage"
)

// Engine reads the account registry and balance entries and rewrites a
// categorized ledger into its final synthesized form.
type Engine struct {
	registry *storage.AccountRegistryStore
	balances *storage.BalanceEntryStore
}

func NewEngine(registry *storage.AccountRegistryStore, balances *storage.BalanceEntryStore) *Engine {
	return &Engine{registry: registry, balances: balances}
}

// Synthesize runs the full pass: strip previously generated rows, transfer to
// fake accounts, append captured mirrors, append synthetic adjustments, and
// sort by transaction date descending. Re-running over an already synthesized
// ledger yields the same result.
func (e *Engine) Synthesize(ledger []models.Transaction) ([]models.Transaction, error) {
	base := make([]models.Transaction, 0, len(ledger))
	for _, tx := range ledger {
		if tx.Source == models.SourceTypeCaptured || tx.Source == models.SourceTypeSynthetic {
			continue
		}
		base = append(base, tx)
	}

	accounts, err := e.registry.Load()
	if err != nil {
		return nil, err
	}

	base = transferToFakeAccounts(base, accounts)

	captured := capturedTransactions(base, accounts)
	out := append(base, captured...)

	entries, err := e.balances.Load()
	if err != nil {
		return nil, err
	}
	synthetic := dedupByKey(syntheticTransactions(out, accounts, entries))
	out = append(out, synthetic...)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TransactionDate.After(out[j].TransactionDate)
	})

	logger.L.Info("Synthesis pass complete",
		"input", len(ledger), "captured", len(captured), "synthetic", len(synthetic))
	return out, nil
}

// transferToFakeAccounts re-homes rows whose category pair is claimed by a
// Fake registration. The row itself moves; no mirror is created.
func transferToFakeAccounts(ledger []models.Transaction, accounts []models.AccountRegistration) []models.Transaction {
	transferred := 0
	for _, reg := range accounts {
		if reg.Input != models.InputFake {
			continue
		}
		for _, ref := range reg.ParsedCategories() {
			for i := range ledger {
				if ledger[i].Category != ref.Category || ledger[i].SubCategory != ref.SubCategory {
					continue
				}
				ledger[i].Bank = reg.Bank
				ledger[i].Account = reg.Account
				ledger[i].Source = models.SourceTypeFake
				transferred++
			}
		}
	}
	if transferred > 0 {
		logger.L.Info("Transactions transferred to fake accounts", "count", transferred)
	}
	return ledger
}

// capturingAccounts returns the registrations that receive captured mirrors:
// every Balance account plus Transactions accounts that declare a
// Category_Source.
func capturingAccounts(accounts []models.AccountRegistration) []models.AccountRegistration {
	var out []models.AccountRegistration
	for _, reg := range accounts {
		switch reg.Input {
		case models.InputBalance:
			out = append(out, reg)
		case models.InputTransactions:
			if len(reg.ParsedCategories()) > 0 {
				out = append(out, reg)
			}
		}
	}
	return out
}

// capturedTransactions mirrors every row whose category pair is linked to a
// capturing account. The mirror negates the amount and drops the balance; the
// same economic event then appears once per side of the transfer.
func capturedTransactions(ledger []models.Transaction, accounts []models.AccountRegistration) []models.Transaction {
	var captured []models.Transaction
	for _, reg := range capturingAccounts(accounts) {
		refs := reg.ParsedCategories()
		if len(refs) == 0 {
			continue
		}
		linked := make(map[models.CategoryRef]bool, len(refs))
		for _, ref := range refs {
			linked[ref] = true
		}
		for _, tx := range ledger {
			if !linked[models.CategoryRef{Category: tx.Category, SubCategory: tx.SubCategory}] {
				continue
			}
			mirror := tx
			mirror.Bank = reg.Bank
			mirror.Account = reg.Account
			mirror.Amount = -tx.Amount
			mirror.Balance = nil
			mirror.Source = models.SourceTypeCaptured
			captured = append(captured, mirror)
		}
	}
	return captured
}

// syntheticTransactions reconciles each Balance account's manual snapshots
// against the running sum of its captured transactions. For each snapshot in
// date order, delta = manual − (R + S) where R is the cumulative captured
// amount up to the snapshot date and S the adjustments emitted so far; a
// non-zero delta becomes one synthetic row.
func syntheticTransactions(ledger []models.Transaction, accounts []models.AccountRegistration, entries []models.BalanceEntry) []models.Transaction {
	var synthetic []models.Transaction
	for _, reg := range accounts {
		if reg.Input != models.InputBalance {
			continue
		}

		var accountEntries []models.BalanceEntry
		for _, entry := range entries {
			if entry.Bank == reg.Bank && entry.Account == reg.Account {
				accountEntries = append(accountEntries, entry)
			}
		}
		if len(accountEntries) == 0 {
			continue
		}
		sort.SliceStable(accountEntries, func(i, j int) bool {
			return accountEntries[i].Date.Before(accountEntries[j].Date)
		})

		var capturedTxs []models.Transaction
		for _, tx := range ledger {
			if tx.Bank == reg.Bank && tx.Account == reg.Account && tx.Source == models.SourceTypeCaptured {
				capturedTxs = append(capturedTxs, tx)
			}
		}
		sort.SliceStable(capturedTxs, func(i, j int) bool {
			return capturedTxs[i].TransactionDate.Before(capturedTxs[j].TransactionDate)
		})

		runningSum := 0.0
		adjusted := 0.0
		idx := 0
		for _, entry := range accountEntries {
			for idx < len(capturedTxs) && !capturedTxs[idx].TransactionDate.After(entry.Date) {
				runningSum += capturedTxs[idx].Amount
				idx++
			}

			delta := entry.Balance - (runningSum + adjusted)
			if delta == 0 {
				continue
			}

			balance := entry.Balance
			synthetic = append(synthetic, models.Transaction{
				TransactionDate: entry.Date,
				EffectiveDate:   entry.Date,
				Bank:            reg.Bank,
				Account:         reg.Account,
				Description: fmt.Sprintf("Adjustment - %s %s | Balance %s",
					reg.Bank, reg.Account, models.FormatAmount(entry.Balance)),
				Type:        models.TypeNone,
				Amount:      delta,
				Balance:     &balance,
				Category:    models.CategoryBalanceAdjustment,
				SubCategory: models.CategoryBalanceAdjustment,
				Source:      models.SourceTypeSynthetic,
			})
			adjusted += delta
		}
	}
	return synthetic
}

// dedupByKey drops later rows sharing an earlier row's transaction key.
func dedupByKey(txs []models.Transaction) []models.Transaction {
	seen := make(map[string]bool, len(txs))
	out := txs[:0]
	for _, tx := range txs {
		key := tx.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tx)
	}
	return out
}
