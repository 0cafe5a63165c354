// backend/src/services/pipeline_service_test.go
package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/finledger/backend/src/categorization"
	"github.com/username/finledger/backend/src/models"
	"github.com/username/finledger/backend/src/parsers"
	"github.com/username/finledger/backend/src/parsers/schemacsv"
	"github.com/username/finledger/backend/src/signatures"
	"github.com/username/finledger/backend/src/storage"
	"github.com/username/finledger/backend/src/synthesis"
)

type pipelineFixture struct {
	pipeline *PipelineService
	rules    *categorization.RuleService
	files    *storage.FileSummaryStore
	balances *storage.BalanceEntryStore
	rawDir   string
}

func newPipelineFixture(t *testing.T, registryRows ...string) *pipelineFixture {
	t.Helper()
	dataDir := t.TempDir()
	rawDir := filepath.Join(dataDir, "raw")
	require.NoError(t, os.MkdirAll(rawDir, 0o755))

	registry := "Bank,Account,Input,Category_Source\n"
	for _, row := range registryRows {
		registry += row + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "bank_mapping.csv"), []byte(registry), 0o644))

	sigs := signatures.NewRegistry(signatures.Signature{
		Bank:       "BankA",
		Account:    "Checking",
		Extension:  ".csv",
		DateFormat: "%Y-%m-%d",
		ColumnsMapping: map[string]string{
			"Transaction Date": "Date",
			"Effective Date":   "Date",
			"Transaction":      "Description",
			"Amount":           "Value",
			"Balance":          "Balance",
		},
	})
	parserRegistry := parsers.NewRegistry()
	parserRegistry.Register(".csv", schemacsv.NewReader())

	ruleService := categorization.NewRuleService(
		storage.NewRuleStore(dataDir),
		storage.NewPairStore(dataDir),
		storage.NewAmountOverrideStore(dataDir),
		storage.NewInstanceOverrideStore(dataDir),
	)
	balances := storage.NewBalanceEntryStore(dataDir)
	synthEngine := synthesis.NewEngine(storage.NewAccountRegistryStore(dataDir), balances)
	files := storage.NewFileSummaryStore(dataDir)

	return &pipelineFixture{
		pipeline: NewPipelineService(
			storage.NewLedgerStore(dataDir), files, sigs, parserRegistry, ruleService, synthEngine, rawDir),
		rules:    ruleService,
		files:    files,
		balances: balances,
		rawDir:   rawDir,
	}
}

func (f *pipelineFixture) addFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.rawDir, name), []byte(content), 0o644))
	require.NoError(t, f.files.Append(storage.FileRecord{
		FileName:   name,
		Bank:       "BankA",
		Account:    "Checking",
		UploadDate: time.Now(),
	}))
}

func TestIngestWithoutFiles(t *testing.T) {
	f := newPipelineFixture(t)
	_, err := f.pipeline.Ingest()
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestIngestParsesDedupsAndPersists(t *testing.T) {
	f := newPipelineFixture(t)
	f.addFile(t, "2024-01.csv",
		"Date,Description,Value,Balance\n"+
			"2024-01-05,STARBUCKS COFFEE,-4.50,95.50\n"+
			"2024-01-05,STARBUCKS COFFEE,-4.50,91.00\n"+
			"2024-01-31,SALARY,1000.00,1091.00\n")
	f.addFile(t, "2024-02.csv",
		"Date,Description,Value,Balance\n"+
			"2024-01-31,SALARY,1000.00,1091.00\n"+
			"2024-02-10,RENT,-950.00,141.00\n")

	out, err := f.pipeline.Ingest()
	require.NoError(t, err)

	// Same-day repeated purchases differ by balance and both survive; the
	// salary row overlapping both exports collapses to one.
	require.Len(t, out, 4)
	starbucks := 0
	for _, tx := range out {
		if tx.Description == "STARBUCKS COFFEE" {
			starbucks++
		}
		assert.Equal(t, "BankA", tx.Bank)
		assert.Equal(t, "BankA Checking", tx.Account)
		assert.Equal(t, models.CategoryUncategorized, tx.Category)
	}
	assert.Equal(t, 2, starbucks)

	persisted, err := f.pipeline.Ledger()
	require.NoError(t, err)
	assert.Len(t, persisted, 4)

	records, err := f.files.Load()
	require.NoError(t, err)
	for _, rec := range records {
		assert.True(t, rec.Processed, "file %s should be marked processed", rec.FileName)
	}
}

func TestIngestIsRepeatable(t *testing.T) {
	f := newPipelineFixture(t)
	f.addFile(t, "2024-01.csv",
		"Date,Description,Value,Balance\n"+
			"2024-01-05,STARBUCKS COFFEE,-4.50,95.50\n")

	first, err := f.pipeline.Ingest()
	require.NoError(t, err)
	second, err := f.pipeline.Ingest()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIngestSkipsAccountWithoutSignature(t *testing.T) {
	f := newPipelineFixture(t)
	f.addFile(t, "2024-01.csv",
		"Date,Description,Value,Balance\n"+
			"2024-01-05,STARBUCKS COFFEE,-4.50,95.50\n")
	require.NoError(t, os.WriteFile(filepath.Join(f.rawDir, "mystery.csv"),
		[]byte("Date,Description,Value\n2024-01-06,WHO KNOWS,-1.00\n"), 0o644))
	require.NoError(t, f.files.Append(storage.FileRecord{
		FileName: "mystery.csv", Bank: "Unknown", Account: "Account", UploadDate: time.Now(),
	}))

	// The unregistered account's files are skipped; the registered account's
	// rows still make it into the ledger.
	out, err := f.pipeline.Ingest()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "STARBUCKS COFFEE", out[0].Description)

	records, err := f.files.Load()
	require.NoError(t, err)
	byName := make(map[string]storage.FileRecord, len(records))
	for _, rec := range records {
		byName[rec.FileName] = rec
	}
	assert.True(t, byName["2024-01.csv"].Processed)
	assert.False(t, byName["mystery.csv"].Processed)
}

func TestCategorizePersistsMappedLedger(t *testing.T) {
	f := newPipelineFixture(t)
	f.addFile(t, "2024-01.csv",
		"Date,Description,Value,Balance\n"+
			"2024-01-05,STARBUCKS COFFEE,-4.50,95.50\n"+
			"2024-02-10,RENT,-950.00,141.00\n")
	_, err := f.pipeline.Ingest()
	require.NoError(t, err)

	_, err = f.rules.AddRule("*starbucks*", "Dining", "Coffee", models.DirectionOut)
	require.NoError(t, err)

	out, err := f.pipeline.Categorize()
	require.NoError(t, err)

	byDesc := make(map[string]models.Transaction, len(out))
	for _, tx := range out {
		byDesc[tx.Description] = tx
	}
	assert.Equal(t, "Dining", byDesc["STARBUCKS COFFEE"].Category)
	assert.Equal(t, models.CategoryUncategorized, byDesc["RENT"].Category)

	persisted, err := f.pipeline.Ledger()
	require.NoError(t, err)
	assert.Equal(t, out, persisted)
}

func TestRefreshRunsFullPipeline(t *testing.T) {
	f := newPipelineFixture(t, `Broker,Depot,Balance,"(Investments,Broker Deposit)"`)
	f.addFile(t, "2024-01.csv",
		"Date,Description,Value,Balance\n"+
			"2024-01-05,STARBUCKS COFFEE,-4.50,95.50\n"+
			"2024-01-10,TRANSFER TO BROKER,-100.00,-4.50\n")

	_, err := f.rules.AddRule("*starbucks*", "Dining", "Coffee", models.DirectionOut)
	require.NoError(t, err)
	_, err = f.rules.AddRule("*broker*", "Investments", "Broker Deposit", models.DirectionOut)
	require.NoError(t, err)
	require.NoError(t, f.balances.Upsert(models.BalanceEntry{
		Bank: "Broker", Account: "Depot",
		Date:        mustDate("2024-02-01"),
		Balance:     150,
		EnteredDate: time.Now(),
	}))

	out, err := f.pipeline.Refresh()
	require.NoError(t, err)

	// Two file rows, one captured mirror on the broker side, one synthetic
	// adjustment closing the gap to the manual snapshot.
	require.Len(t, out, 4)
	bySource := make(map[string]int)
	for _, tx := range out {
		bySource[tx.Source]++
	}
	assert.Equal(t, 2, bySource[models.SourceTypeFile])
	assert.Equal(t, 1, bySource[models.SourceTypeCaptured])
	assert.Equal(t, 1, bySource[models.SourceTypeSynthetic])

	// Descending date order: the adjustment on Feb 1 comes first.
	assert.Equal(t, models.SourceTypeSynthetic, out[0].Source)
	assert.Equal(t, 50.0, out[0].Amount)

	persisted, err := f.pipeline.Ledger()
	require.NoError(t, err)
	assert.Len(t, persisted, 4)
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
