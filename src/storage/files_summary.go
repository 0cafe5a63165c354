// backend/src/storage/files_summary.go
package storage

import (
	"fmt"
	"path/filepath"
	"time"
)

var filesSummaryHeader = []string{
	"File Name", "Bank", "Account", "Oldest Date", "Newest Date",
	"Upload Date", "Processed",
}

// FileRecord is one registered raw bank export.
type FileRecord struct {
	FileName   string    `json:"file_name"`
	Bank       string    `json:"bank"`
	Account    string    `json:"account"`
	OldestDate time.Time `json:"oldest_date,omitempty"`
	NewestDate time.Time `json:"newest_date,omitempty"`
	UploadDate time.Time `json:"upload_date"`
	Processed  bool      `json:"processed"`
}

// FileSummaryStore persists the list of uploaded raw files and their
// processing state (files_summary.csv).
type FileSummaryStore struct {
	path string
}

func NewFileSummaryStore(dataDir string) *FileSummaryStore {
	return &FileSummaryStore{path: filepath.Join(dataDir, "files_summary.csv")}
}

func (s *FileSummaryStore) Load() ([]FileRecord, error) {
	index, records, err := readTable(s.path)
	if err != nil {
		return nil, err
	}

	files := make([]FileRecord, 0, len(records))
	for n, record := range records {
		var f FileRecord
		f.FileName = field(record, index, "File Name")
		f.Bank = field(record, index, "Bank")
		f.Account = field(record, index, "Account")
		if f.OldestDate, err = parseDate(field(record, index, "Oldest Date")); err != nil {
			return nil, fmt.Errorf("files summary row %d: %w", n+1, err)
		}
		if f.NewestDate, err = parseDate(field(record, index, "Newest Date")); err != nil {
			return nil, fmt.Errorf("files summary row %d: %w", n+1, err)
		}
		if f.UploadDate, err = parseDate(field(record, index, "Upload Date")); err != nil {
			return nil, fmt.Errorf("files summary row %d: %w", n+1, err)
		}
		f.Processed = field(record, index, "Processed") == "Yes"
		files = append(files, f)
	}
	return files, nil
}

func (s *FileSummaryStore) Save(files []FileRecord) error {
	records := make([][]string, 0, len(files))
	for _, f := range files {
		processed := "No"
		if f.Processed {
			processed = "Yes"
		}
		records = append(records, []string{
			f.FileName,
			f.Bank,
			f.Account,
			formatDate(f.OldestDate),
			formatDate(f.NewestDate),
			formatTimestamp(f.UploadDate),
			processed,
		})
	}
	return writeTable(s.path, filesSummaryHeader, records)
}

// Append registers a newly uploaded file.
func (s *FileSummaryStore) Append(record FileRecord) error {
	files, err := s.Load()
	if err != nil {
		return err
	}
	return s.Save(append(files, record))
}

// MarkProcessed flags the named files as ingested.
func (s *FileSummaryStore) MarkProcessed(fileNames []string) error {
	files, err := s.Load()
	if err != nil {
		return err
	}
	names := make(map[string]bool, len(fileNames))
	for _, n := range fileNames {
		names[n] = true
	}
	for i := range files {
		if names[files[i].FileName] {
			files[i].Processed = true
		}
	}
	return s.Save(files)
}
