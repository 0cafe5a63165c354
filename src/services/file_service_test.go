// backend/src/services/file_service_test.go
package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/finledger/backend/src/parsers"
	"github.com/username/finledger/backend/src/parsers/schemacsv"
	"github.com/username/finledger/backend/src/signatures"
	"github.com/username/finledger/backend/src/storage"
)

func newFileFixture(t *testing.T) (*FileService, string) {
	t.Helper()
	dataDir := t.TempDir()
	rawDir := filepath.Join(dataDir, "raw")

	sigs := signatures.NewRegistry(signatures.Signature{
		Bank:       "BankA",
		Account:    "Checking",
		Extension:  ".csv",
		DateFormat: "%Y-%m-%d",
		ColumnsMapping: map[string]string{
			"Transaction Date": "Date",
			"Transaction":      "Description",
			"Amount":           "Value",
		},
	})
	parserRegistry := parsers.NewRegistry()
	parserRegistry.Register(".csv", schemacsv.NewReader())

	return NewFileService(storage.NewFileSummaryStore(dataDir), sigs, parserRegistry, rawDir), rawDir
}

const validExport = "Date,Description,Value\n" +
	"2024-01-05,STARBUCKS COFFEE,-4.50\n" +
	"2024-01-20,SALARY,1000.00\n"

func TestSaveUploadStoresFileAndRecord(t *testing.T) {
	svc, rawDir := newFileFixture(t)

	record, err := svc.SaveUpload(strings.NewReader(validExport), "2024-01.csv", "BankA", "Checking")
	require.NoError(t, err)
	assert.Equal(t, "2024-01.csv", record.FileName)
	assert.Equal(t, mustDate("2024-01-05"), record.OldestDate)
	assert.Equal(t, mustDate("2024-01-20"), record.NewestDate)
	assert.False(t, record.Processed)

	saved, err := os.ReadFile(filepath.Join(rawDir, "2024-01.csv"))
	require.NoError(t, err)
	assert.Equal(t, validExport, string(saved))

	listed, err := svc.List()
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestSaveUploadRejectsUnregisteredAccount(t *testing.T) {
	svc, _ := newFileFixture(t)

	_, err := svc.SaveUpload(strings.NewReader(validExport), "2024-01.csv", "Unknown", "Account")
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestSaveUploadRejectsExtensionMismatch(t *testing.T) {
	svc, _ := newFileFixture(t)

	_, err := svc.SaveUpload(strings.NewReader(validExport), "export.xlsx", "BankA", "Checking")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestSaveUploadRejectsDuplicateName(t *testing.T) {
	svc, _ := newFileFixture(t)

	_, err := svc.SaveUpload(strings.NewReader(validExport), "2024-01.csv", "BankA", "Checking")
	require.NoError(t, err)
	_, err = svc.SaveUpload(strings.NewReader(validExport), "2024-01.csv", "BankA", "Checking")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestSaveUploadRejectsUnparseableFile(t *testing.T) {
	svc, rawDir := newFileFixture(t)

	_, err := svc.SaveUpload(strings.NewReader("Date,Description,Value\n"), "empty.csv", "BankA", "Checking")
	assert.ErrorIs(t, err, ErrParsingFailed)

	// Nothing staged is left behind after a rejected upload.
	entries, err := os.ReadDir(rawDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveUploadRejectsBinaryContent(t *testing.T) {
	svc, _ := newFileFixture(t)

	_, err := svc.SaveUpload(strings.NewReader("\x00\x01\x02\x03 not a csv"), "2024-01.csv", "BankA", "Checking")
	assert.Error(t, err)
}

func TestSaveUploadStripsPathComponents(t *testing.T) {
	svc, rawDir := newFileFixture(t)

	record, err := svc.SaveUpload(strings.NewReader(validExport), "../../etc/2024-01.csv", "BankA", "Checking")
	require.NoError(t, err)
	assert.Equal(t, "2024-01.csv", record.FileName)
	_, err = os.Stat(filepath.Join(rawDir, "2024-01.csv"))
	assert.NoError(t, err)
}

func TestDeleteRemovesFileAndRecord(t *testing.T) {
	svc, rawDir := newFileFixture(t)

	_, err := svc.SaveUpload(strings.NewReader(validExport), "2024-01.csv", "BankA", "Checking")
	require.NoError(t, err)
	require.NoError(t, svc.Delete("2024-01.csv"))

	_, err = os.Stat(filepath.Join(rawDir, "2024-01.csv"))
	assert.True(t, os.IsNotExist(err))

	listed, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, listed)

	assert.Error(t, svc.Delete("2024-01.csv"))
}
