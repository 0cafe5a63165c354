// backend/src/parsers/schemacsv/reader.go

// Package schemacsv reads CSV bank exports driven entirely by a file
// signature: the signature's column mapping decides how each standard column
// is derived, so one reader serves every CSV-exporting institution.
package schemacsv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/username/finledger/backend/src/logger"
	"github.com/username/finledger/backend/src/models"
	"github.com/username/finledger/backend/src/signatures"
)

// Reader implements parsers.Reader for ".csv" signatures.
type Reader struct{}

func NewReader() *Reader { return &Reader{} }

// Layouts tried when a signature declares no date format.
var bestEffortLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
}

// Parse reads all files for one (bank, account), deduplicates across files
// and returns standardized rows. Files are processed in lexicographic name
// order so that "first file encountered" is stable regardless of how the
// caller listed them.
func (r *Reader) Parse(filePaths []string, sig signatures.Signature, bank, account string) ([]models.Transaction, error) {
	paths := append([]string(nil), filePaths...)
	sort.Slice(paths, func(i, j int) bool {
		return filepath.Base(paths[i]) < filepath.Base(paths[j])
	})

	var rows []models.Transaction
	for _, path := range paths {
		fileRows, err := r.readFile(path, sig)
		if err != nil {
			logger.L.Error("Skipping unreadable file", "file", path, "bank", bank, "account", account, "error", err)
			continue
		}
		rows = append(rows, fileRows...)
	}

	rows = dedupAcrossFiles(rows)

	// Account is stored in the app's "Bank Account" display form.
	accountName := bank + " " + account
	for i := range rows {
		rows[i].Bank = bank
		rows[i].Account = accountName
		rows[i].Type = models.TypeForAmount(rows[i].Amount)
		rows[i].Category = models.CategoryUncategorized
		rows[i].SubCategory = models.CategoryUncategorized
	}
	return rows, nil
}

func (r *Reader) readFile(path string, sig signatures.Signature) ([]models.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	for i := 0; i < sig.SkipRows; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, fmt.Errorf("skipping preamble: %w", err)
		}
	}
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	headerIndex := make(map[string]int, len(header))
	for i, name := range header {
		headerIndex[strings.TrimSpace(name)] = i
	}

	exprs := make(map[string]signatures.Expr, len(sig.ColumnsMapping))
	for target, value := range sig.ColumnsMapping {
		exprs[target] = signatures.CompileExpr(value)
	}
	dateLayout := sig.DateLayout()

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	fileName := filepath.Base(path)
	rows := make([]models.Transaction, 0, len(records))
	for i, record := range records {
		lookup := func(column string) (string, bool) {
			idx, ok := headerIndex[column]
			if !ok || idx >= len(record) {
				return "", false
			}
			return record[idx], true
		}

		cell := func(target string) string {
			expr, ok := exprs[target]
			if !ok {
				return ""
			}
			return strings.TrimSpace(expr.Eval(lookup))
		}

		amountStr := normalizeDecimalString(cell("Amount"))
		amount, err := strconv.ParseFloat(amountStr, 64)
		if err != nil {
			logger.L.Warn("Skipping row with unparseable amount", "file", fileName, "row", i+1, "value", amountStr)
			continue
		}

		var balance *float64
		if balanceStr := normalizeDecimalString(cell("Balance")); balanceStr != "" {
			if v, err := strconv.ParseFloat(balanceStr, 64); err == nil {
				balance = &v
			}
		}

		rows = append(rows, models.Transaction{
			TransactionDate: parseDate(cell("Transaction Date"), dateLayout),
			EffectiveDate:   parseDate(cell("Effective Date"), dateLayout),
			Description:     cell("Transaction"),
			Amount:          amount,
			Balance:         balance,
			SourceFile:      fileName,
			SourceRowNo:     i + 1,
		})
	}
	return rows, nil
}

// parseDate coerces unparseable values to the zero time instead of failing
// the row.
func parseDate(value, layout string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if layout != "" {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
		return time.Time{}
	}
	for _, l := range bestEffortLayouts {
		if t, err := time.Parse(l, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// normalizeDecimalString strips quotes and whitespace and rewrites the
// amount into period-decimal form. The rightmost of '.' and ',' is taken as
// the decimal separator; the other character only groups thousands, so
// "1,234.56", "1.234,56" and "-950,00" all normalize correctly.
func normalizeDecimalString(s string) string {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.Trim(cleaned, "\"")
	if !strings.Contains(cleaned, ",") {
		return cleaned
	}
	if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		if strings.Count(cleaned, ",") == 1 {
			return strings.Replace(cleaned, ",", ".", 1)
		}
	}
	return strings.ReplaceAll(cleaned, ",", "")
}

// dedupAcrossFiles keeps duplicates within a file (two identical cash
// withdrawals on the same day are legitimate) but drops rows repeating a
// (dates, description, amount, balance) tuple already contributed by an
// earlier file: overlapping exports describe the same transaction twice.
func dedupAcrossFiles(rows []models.Transaction) []models.Transaction {
	firstFile := make(map[string]string)
	for _, row := range rows {
		key := dedupKey(row)
		if _, seen := firstFile[key]; !seen {
			firstFile[key] = row.SourceFile
		}
	}

	kept := rows[:0]
	for _, row := range rows {
		if firstFile[dedupKey(row)] == row.SourceFile {
			kept = append(kept, row)
		}
	}
	return kept
}

func dedupKey(row models.Transaction) string {
	balance := ""
	if row.Balance != nil {
		balance = models.FormatAmount(*row.Balance)
	}
	return strings.Join([]string{
		models.FormatDate(row.TransactionDate),
		models.FormatDate(row.EffectiveDate),
		row.Description,
		models.FormatAmount(row.Amount),
		balance,
	}, "\x00")
}
