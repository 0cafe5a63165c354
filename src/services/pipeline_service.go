// backend/src/services/pipeline_service.go
package services

import (
	"path/filepath"

	"github.com/username/finledger/backend/src/categorization"
	"github.com/username/finledger/backend/src/logger"
	"github.com/username/finledger/backend/src/models"
	"github.com/username/finledger/backend/src/parsers"
	"github.com/username/finledger/backend/src/signatures"
	"github.com/username/finledger/backend/src/storage"
	"github.com/username/finledger/backend/src/synthesis"
)

// PipelineService drives the three pipeline stages over the persisted
// ledger: ingest raw files, map categories, synthesize generated rows.
type PipelineService struct {
	ledger     *storage.LedgerStore
	files      *storage.FileSummaryStore
	signatures *signatures.Registry
	parsers    *parsers.Registry
	rules      *categorization.RuleService
	synth      *synthesis.Engine
	rawDir     string
}

func NewPipelineService(
	ledger *storage.LedgerStore,
	files *storage.FileSummaryStore,
	sigs *signatures.Registry,
	parserRegistry *parsers.Registry,
	rules *categorization.RuleService,
	synth *synthesis.Engine,
	rawDir string,
) *PipelineService {
	return &PipelineService{
		ledger:     ledger,
		files:      files,
		signatures: sigs,
		parsers:    parserRegistry,
		rules:      rules,
		synth:      synth,
		rawDir:     rawDir,
	}
}

// Ingest parses every registered raw file into a fresh file-sourced ledger,
// deduplicates by transaction key keeping the first occurrence, persists the
// result and marks the files processed. Files are marked only after the
// ledger write succeeds.
func (s *PipelineService) Ingest() ([]models.Transaction, error) {
	raw, processed, err := s.ingest()
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Save(raw); err != nil {
		return nil, err
	}
	if err := s.files.MarkProcessed(processed); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *PipelineService) ingest() ([]models.Transaction, []string, error) {
	records, err := s.files.Load()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, ErrNoFiles
	}

	type accountKey struct{ bank, account string }
	grouped := make(map[accountKey][]string)
	var order []accountKey
	for _, rec := range records {
		key := accountKey{rec.Bank, rec.Account}
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], rec.FileName)
	}

	// A failed (bank, account) batch never poisons the rest of the run: its
	// files are logged and skipped, and stay unprocessed for a later retry.
	var raw []models.Transaction
	var processed []string
	for _, key := range order {
		names := grouped[key]
		sig, err := s.signatures.Signature(key.bank, key.account)
		if err != nil {
			logger.L.Error("Skipping files with no signature", "bank", key.bank, "account", key.account, "files", len(names), "error", err)
			continue
		}
		reader, err := s.parsers.ReaderFor(sig.Extension)
		if err != nil {
			logger.L.Error("Skipping files with no parser", "bank", key.bank, "account", key.account, "extension", sig.Extension, "error", err)
			continue
		}

		paths := make([]string, 0, len(names))
		for _, name := range names {
			paths = append(paths, filepath.Join(s.rawDir, name))
		}
		logger.L.Info("Ingesting files", "bank", key.bank, "account", key.account, "files", len(paths))
		txs, err := reader.Parse(paths, sig, key.bank, key.account)
		if err != nil {
			logger.L.Error("Skipping files that failed to parse", "bank", key.bank, "account", key.account, "error", err)
			continue
		}
		raw = append(raw, txs...)
		processed = append(processed, names...)
	}

	raw = dedupByKey(raw)
	logger.L.Info("Ingestion complete", "rows", len(raw))
	return raw, processed, nil
}

// Categorize reloads the ledger, runs the rule engine and persists the
// mapped result.
func (s *PipelineService) Categorize() ([]models.Transaction, error) {
	ledger, err := s.ledger.Load()
	if err != nil {
		return nil, err
	}
	mapped, err := s.rules.Categorize(ledger)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Save(mapped); err != nil {
		return nil, err
	}
	return mapped, nil
}

// Synthesize reloads the ledger, regenerates captured and synthetic rows and
// persists the result.
func (s *PipelineService) Synthesize() ([]models.Transaction, error) {
	ledger, err := s.ledger.Load()
	if err != nil {
		return nil, err
	}
	final, err := s.synth.Synthesize(ledger)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Save(final); err != nil {
		return nil, err
	}
	return final, nil
}

// Refresh runs ingest, map and synthesize in memory and persists the ledger
// once at the end.
func (s *PipelineService) Refresh() ([]models.Transaction, error) {
	raw, processed, err := s.ingest()
	if err != nil {
		return nil, err
	}
	mapped, err := s.rules.Categorize(raw)
	if err != nil {
		return nil, err
	}
	final, err := s.synth.Synthesize(mapped)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Save(final); err != nil {
		return nil, err
	}
	if err := s.files.MarkProcessed(processed); err != nil {
		return nil, err
	}
	return final, nil
}

// Ledger returns the persisted consolidated ledger.
func (s *PipelineService) Ledger() ([]models.Transaction, error) {
	return s.ledger.Load()
}

// SaveLedger persists an updated ledger, used after targeted recolors.
func (s *PipelineService) SaveLedger(ledger []models.Transaction) error {
	return s.ledger.Save(ledger)
}

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
