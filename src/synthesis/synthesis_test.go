// backend/src/synthesis/synthesis_test.go
package synthesis

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/finledger/backend/src/models"
	"github.com/username/finledger/backend/src/storage"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func floatPtr(v float64) *float64 { return &v }

// writeRegistry seeds bank_mapping.csv, the operator-maintained registry the
// engine reads but never writes.
func writeRegistry(t *testing.T, dir string, rows ...string) {
	t.Helper()
	content := "Bank,Account,Input,Category_Source\n"
	for _, row := range rows {
		content += row + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank_mapping.csv"), []byte(content), 0o644))
}

func newTestEngine(t *testing.T, registryRows ...string) (*Engine, *storage.BalanceEntryStore) {
	t.Helper()
	dir := t.TempDir()
	writeRegistry(t, dir, registryRows...)
	balances := storage.NewBalanceEntryStore(dir)
	return NewEngine(storage.NewAccountRegistryStore(dir), balances), balances
}

func fileTx(day, description string, amount float64, category, subCategory string) models.Transaction {
	return models.Transaction{
		TransactionDate: date(day),
		EffectiveDate:   date(day),
		Bank:            "BankA",
		Account:         "BankA Checking",
		Description:     description,
		Type:            models.TypeForAmount(amount),
		Amount:          amount,
		Category:        category,
		SubCategory:     subCategory,
		Source:          models.SourceTypeFile,
	}
}

func TestSynthesizeCapturedMirrors(t *testing.T) {
	engine, _ := newTestEngine(t, `Broker,Depot,Balance,"(Investments,Broker Deposit)"`)

	ledger := []models.Transaction{
		fileTx("2024-01-10", "TRANSFER TO BROKER", -500, "Investments", "Broker Deposit"),
		fileTx("2024-01-11", "RENT", -950, "Housing", "Rent"),
	}

	out, err := engine.Synthesize(ledger)
	require.NoError(t, err)
	require.Len(t, out, 3)

	var mirror *models.Transaction
	for i := range out {
		if out[i].Source == models.SourceTypeCaptured {
			mirror = &out[i]
		}
	}
	require.NotNil(t, mirror)
	assert.Equal(t, "Broker", mirror.Bank)
	assert.Equal(t, "Depot", mirror.Account)
	assert.Equal(t, 500.0, mirror.Amount)
	assert.Nil(t, mirror.Balance)
	assert.Equal(t, "Investments", mirror.Category)
	assert.Equal(t, "Broker Deposit", mirror.SubCategory)
	assert.Equal(t, "TRANSFER TO BROKER", mirror.Description)
	assert.Equal(t, date("2024-01-10"), mirror.TransactionDate)
}

func TestSynthesizeTransactionsAccountCapturesOnlyWithCategorySource(t *testing.T) {
	engine, _ := newTestEngine(t,
		`Wallet,Cash,Transactions,"(Cash,Withdrawal)"`,
		`BankB,Savings,Transactions,`,
	)

	ledger := []models.Transaction{
		fileTx("2024-01-10", "ATM", -100, "Cash", "Withdrawal"),
	}

	out, err := engine.Synthesize(ledger)
	require.NoError(t, err)
	require.Len(t, out, 2)

	captured := 0
	for _, tx := range out {
		if tx.Source == models.SourceTypeCaptured {
			captured++
			assert.Equal(t, "Wallet", tx.Bank)
			assert.Equal(t, 100.0, tx.Amount)
		}
	}
	assert.Equal(t, 1, captured)
}

func TestSynthesizeFakeTransferRehomesInPlace(t *testing.T) {
	engine, _ := newTestEngine(t, `Loans,Friend,Fake,"(Loans,Personal)"`)

	ledger := []models.Transaction{
		fileTx("2024-01-10", "LENT TO FRIEND", -200, "Loans", "Personal"),
		fileTx("2024-01-11", "RENT", -950, "Housing", "Rent"),
	}

	out, err := engine.Synthesize(ledger)
	require.NoError(t, err)
	// No mirror is added; the row itself moves.
	require.Len(t, out, 2)

	var moved *models.Transaction
	for i := range out {
		if out[i].Description == "LENT TO FRIEND" {
			moved = &out[i]
		}
	}
	require.NotNil(t, moved)
	assert.Equal(t, "Loans", moved.Bank)
	assert.Equal(t, "Friend", moved.Account)
	assert.Equal(t, models.SourceTypeFake, moved.Source)
	assert.Equal(t, -200.0, moved.Amount)
}

func TestSynthesizeBalanceAdjustment(t *testing.T) {
	engine, balances := newTestEngine(t, `Broker,Depot,Balance,"(Investments,Broker Deposit)"`)
	require.NoError(t, balances.Upsert(models.BalanceEntry{
		Bank: "Broker", Account: "Depot",
		Date: date("2024-02-01"), Balance: 150,
		EnteredDate: date("2024-02-01"),
	}))

	// Captured mirror flips the -100 deposit to +100 on the Broker side; the
	// manual snapshot of 150 then needs a +50 adjustment.
	ledger := []models.Transaction{
		fileTx("2024-01-10", "TRANSFER TO BROKER", -100, "Investments", "Broker Deposit"),
	}

	out, err := engine.Synthesize(ledger)
	require.NoError(t, err)

	var synthetic []models.Transaction
	for _, tx := range out {
		if tx.Source == models.SourceTypeSynthetic {
			synthetic = append(synthetic, tx)
		}
	}
	require.Len(t, synthetic, 1)
	adj := synthetic[0]
	assert.Equal(t, 50.0, adj.Amount)
	assert.Equal(t, date("2024-02-01"), adj.TransactionDate)
	assert.Equal(t, "Adjustment - Broker Depot | Balance 150", adj.Description)
	assert.Equal(t, models.TypeNone, adj.Type)
	assert.Equal(t, models.CategoryBalanceAdjustment, adj.Category)
	assert.Equal(t, models.CategoryBalanceAdjustment, adj.SubCategory)
	require.NotNil(t, adj.Balance)
	assert.Equal(t, 150.0, *adj.Balance)
}

func TestSynthesizeNoAdjustmentWhenBalancesAgree(t *testing.T) {
	engine, balances := newTestEngine(t, `Broker,Depot,Balance,"(Investments,Broker Deposit)"`)
	require.NoError(t, balances.Upsert(models.BalanceEntry{
		Bank: "Broker", Account: "Depot",
		Date: date("2024-02-01"), Balance: 100,
		EnteredDate: date("2024-02-01"),
	}))

	ledger := []models.Transaction{
		fileTx("2024-01-10", "TRANSFER TO BROKER", -100, "Investments", "Broker Deposit"),
	}

	out, err := engine.Synthesize(ledger)
	require.NoError(t, err)
	for _, tx := range out {
		assert.NotEqual(t, models.SourceTypeSynthetic, tx.Source)
	}
}

func TestSynthesizeCapturedAfterSnapshotIsExcluded(t *testing.T) {
	engine, balances := newTestEngine(t, `Broker,Depot,Balance,"(Investments,Broker Deposit)"`)
	require.NoError(t, balances.Upsert(models.BalanceEntry{
		Bank: "Broker", Account: "Depot",
		Date: date("2024-01-05"), Balance: 150,
		EnteredDate: date("2024-01-05"),
	}))

	// The deposit posts after the snapshot date, so the running sum at the
	// snapshot is zero and the full 150 is synthesized.
	ledger := []models.Transaction{
		fileTx("2024-01-10", "TRANSFER TO BROKER", -100, "Investments", "Broker Deposit"),
	}

	out, err := engine.Synthesize(ledger)
	require.NoError(t, err)

	var synthetic []models.Transaction
	for _, tx := range out {
		if tx.Source == models.SourceTypeSynthetic {
			synthetic = append(synthetic, tx)
		}
	}
	require.Len(t, synthetic, 1)
	assert.Equal(t, 150.0, synthetic[0].Amount)
}

func TestSynthesizeSequentialSnapshotsCarryAdjustments(t *testing.T) {
	engine, balances := newTestEngine(t, `Broker,Depot,Balance,`)
	require.NoError(t, balances.Upsert(models.BalanceEntry{
		Bank: "Broker", Account: "Depot",
		Date: date("2024-01-01"), Balance: 100,
		EnteredDate: date("2024-01-01"),
	}))
	require.NoError(t, balances.Upsert(models.BalanceEntry{
		Bank: "Broker", Account: "Depot",
		Date: date("2024-02-01"), Balance: 130,
		EnteredDate: date("2024-02-01"),
	}))

	out, err := engine.Synthesize(nil)
	require.NoError(t, err)
	require.Len(t, out, 2)

	// Descending by date: February first.
	assert.Equal(t, 30.0, out[0].Amount)
	assert.Equal(t, date("2024-02-01"), out[0].TransactionDate)
	assert.Equal(t, 100.0, out[1].Amount)
	assert.Equal(t, date("2024-01-01"), out[1].TransactionDate)
}

func TestSynthesizeIdempotent(t *testing.T) {
	engine, balances := newTestEngine(t, `Broker,Depot,Balance,"(Investments,Broker Deposit)"`)
	require.NoError(t, balances.Upsert(models.BalanceEntry{
		Bank: "Broker", Account: "Depot",
		Date: date("2024-02-01"), Balance: 150,
		EnteredDate: date("2024-02-01"),
	}))

	ledger := []models.Transaction{
		fileTx("2024-01-10", "TRANSFER TO BROKER", -100, "Investments", "Broker Deposit"),
		fileTx("2024-01-11", "RENT", -950, "Housing", "Rent"),
	}

	once, err := engine.Synthesize(ledger)
	require.NoError(t, err)
	twice, err := engine.Synthesize(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestSynthesizeStripsStaleGeneratedRows(t *testing.T) {
	engine, _ := newTestEngine(t)

	stale := fileTx("2024-01-10", "OLD MIRROR", 500, "Investments", "Broker Deposit")
	stale.Source = models.SourceTypeCaptured
	staleAdj := fileTx("2024-01-11", "OLD ADJUSTMENT", 50, models.CategoryBalanceAdjustment, models.CategoryBalanceAdjustment)
	staleAdj.Source = models.SourceTypeSynthetic
	staleAdj.Balance = floatPtr(150)

	out, err := engine.Synthesize([]models.Transaction{
		stale,
		staleAdj,
		fileTx("2024-01-12", "RENT", -950, "Housing", "Rent"),
	})
	require.NoError(t, err)
	// With an empty registry nothing is regenerated.
	require.Len(t, out, 1)
	assert.Equal(t, "RENT", out[0].Description)
}

func TestSynthesizeSortsDescendingByDate(t *testing.T) {
	engine, _ := newTestEngine(t)

	out, err := engine.Synthesize([]models.Transaction{
		fileTx("2024-01-10", "A", -1, "Misc", "Misc"),
		fileTx("2024-03-10", "B", -1, "Misc", "Misc"),
		fileTx("2024-02-10", "C", -1, "Misc", "Misc"),
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "B", out[0].Description)
	assert.Equal(t, "C", out[1].Description)
	assert.Equal(t, "A", out[2].Description)
}
