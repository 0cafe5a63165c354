// backend/src/services/file_service.go
package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/username/finledger/backend/src/logger"
	"github.com/username/finledger/backend/src/parsers"
	"github.com/username/finledger/backend/src/security/validation"
	"github.com/username/finledger/backend/src/signatures"
	"github.com/username/finledger/backend/src/storage"
)

// FileService stores uploaded raw bank exports and keeps the files summary
// in sync. File names are the dedup identity across uploads, so an existing
// name is never silently overwritten.
type FileService struct {
	files      *storage.FileSummaryStore
	signatures *signatures.Registry
	parsers    *parsers.Registry
	rawDir     string
}

func NewFileService(files *storage.FileSummaryStore, sigs *signatures.Registry, parserRegistry *parsers.Registry, rawDir string) *FileService {
	return &FileService{files: files, signatures: sigs, parsers: parserRegistry, rawDir: rawDir}
}

// List returns the registered raw files.
func (s *FileService) List() ([]storage.FileRecord, error) {
	return s.files.Load()
}

// SaveUpload validates and stores an uploaded raw file for a registered
// account, then appends it to the files summary with the date range found by
// a trial parse. The file is staged under a random name and renamed into
// place only after it parses.
func (s *FileService) SaveUpload(file io.ReadSeeker, fileName, bank, account string) (storage.FileRecord, error) {
	var record storage.FileRecord

	fileName = filepath.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." || fileName == ".." {
		return record, fmt.Errorf("invalid file name")
	}

	sig, err := s.signatures.Signature(bank, account)
	if err != nil {
		return record, fmt.Errorf("%w: %s/%s has no file signature", ErrUnknownAccount, bank, account)
	}
	if ext := strings.ToLower(filepath.Ext(fileName)); ext != strings.ToLower(sig.Extension) {
		return record, fmt.Errorf("file extension %q does not match the %q signature for %s/%s", ext, sig.Extension, bank, account)
	}
	if err := validation.ValidateFileContent(file); err != nil {
		return record, err
	}

	existing, err := s.files.Load()
	if err != nil {
		return record, err
	}
	for _, f := range existing {
		if f.FileName == fileName {
			return record, fmt.Errorf("file %q is already registered", fileName)
		}
	}

	if err := os.MkdirAll(s.rawDir, 0o755); err != nil {
		return record, err
	}
	stagingPath := filepath.Join(s.rawDir, ".upload-"+uuid.NewString())
	staged, err := os.Create(stagingPath)
	if err != nil {
		return record, err
	}
	if _, err := io.Copy(staged, file); err != nil {
		staged.Close()
		os.Remove(stagingPath)
		return record, fmt.Errorf("storing upload: %w", err)
	}
	if err := staged.Close(); err != nil {
		os.Remove(stagingPath)
		return record, err
	}

	oldest, newest, err := s.trialParse(stagingPath, sig, bank, account)
	if err != nil {
		os.Remove(stagingPath)
		return record, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	finalPath := filepath.Join(s.rawDir, fileName)
	if err := os.Rename(stagingPath, finalPath); err != nil {
		os.Remove(stagingPath)
		return record, err
	}

	record = storage.FileRecord{
		FileName:   fileName,
		Bank:       bank,
		Account:    account,
		OldestDate: oldest,
		NewestDate: newest,
		UploadDate: time.Now(),
		Processed:  false,
	}
	if err := s.files.Append(record); err != nil {
		return record, err
	}

	logger.L.Info("Raw file uploaded", "file", fileName, "bank", bank, "account", account)
	return record, nil
}

// trialParse parses the staged file alone and reports its transaction date
// range. A file that yields no parseable rows is rejected.
func (s *FileService) trialParse(path string, sig signatures.Signature, bank, account string) (oldest, newest time.Time, err error) {
	reader, err := s.parsers.ReaderFor(sig.Extension)
	if err != nil {
		return oldest, newest, err
	}
	txs, err := reader.Parse([]string{path}, sig, bank, account)
	if err != nil {
		return oldest, newest, err
	}
	if len(txs) == 0 {
		return oldest, newest, fmt.Errorf("file contains no parseable transactions")
	}
	for _, tx := range txs {
		if tx.TransactionDate.IsZero() {
			continue
		}
		if oldest.IsZero() || tx.TransactionDate.Before(oldest) {
			oldest = tx.TransactionDate
		}
		if newest.IsZero() || tx.TransactionDate.After(newest) {
			newest = tx.TransactionDate
		}
	}
	return oldest, newest, nil
}

// Delete removes a raw file and its summary record. Ledger rows already
// ingested from it stay until the next ingest pass rebuilds the file-sourced
// ledger.
func (s *FileService) Delete(fileName string) error {
	fileName = filepath.Base(fileName)
	records, err := s.files.Load()
	if err != nil {
		return err
	}
	kept := records[:0]
	found := false
	for _, f := range records {
		if f.FileName == fileName {
			found = true
			continue
		}
		kept = append(kept, f)
	}
	if !found {
		return fmt.Errorf("file %q is not registered", fileName)
	}
	if err := os.Remove(filepath.Join(s.rawDir, fileName)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return s.files.Save(kept)
}
