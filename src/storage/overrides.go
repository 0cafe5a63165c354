// backend/src/storage/overrides.go
package storage

import (
	"fmt"
	"path/filepath"

	"github.com/username/finledger/backend/src/models"
)

var (
	amountOverridesHeader   = []string{"Transaction", "Amount", "Category", "Sub-Category", "Direction", "Override_Date"}
	instanceOverridesHeader = []string{"Transaction_Key", "Category", "Sub-Category", "Direction", "Override_Date"}
)

// AmountOverrideStore persists overrides keyed by (description, amount).
type AmountOverrideStore struct {
	path string
}

func NewAmountOverrideStore(dataDir string) *AmountOverrideStore {
	return &AmountOverrideStore{path: filepath.Join(dataDir, "amount_overwrites.csv")}
}

func (s *AmountOverrideStore) Load() ([]models.AmountOverride, error) {
	index, records, err := readTable(s.path)
	if err != nil {
		return nil, err
	}

	overrides := make([]models.AmountOverride, 0, len(records))
	for n, record := range records {
		var o models.AmountOverride
		o.Description = field(record, index, "Transaction")
		if o.Amount, err = parseFloat(field(record, index, "Amount")); err != nil {
			return nil, fmt.Errorf("amount override row %d: %w", n+1, err)
		}
		o.Category = field(record, index, "Category")
		o.SubCategory = field(record, index, "Sub-Category")
		o.Direction = field(record, index, "Direction")
		if o.OverrideDate, err = parseDate(field(record, index, "Override_Date")); err != nil {
			return nil, fmt.Errorf("amount override row %d: %w", n+1, err)
		}
		overrides = append(overrides, o)
	}
	return overrides, nil
}

func (s *AmountOverrideStore) Save(overrides []models.AmountOverride) error {
	records := make([][]string, 0, len(overrides))
	for _, o := range overrides {
		records = append(records, []string{
			o.Description,
			formatFloat(o.Amount),
			o.Category,
			o.SubCategory,
			o.Direction,
			formatTimestamp(o.OverrideDate),
		})
	}
	return writeTable(s.path, amountOverridesHeader, records)
}

// InstanceOverrideStore persists overrides keyed by transaction key.
type InstanceOverrideStore struct {
	path string
}

func NewInstanceOverrideStore(dataDir string) *InstanceOverrideStore {
	return &InstanceOverrideStore{path: filepath.Join(dataDir, "manual_overwrites.csv")}
}

func (s *InstanceOverrideStore) Load() ([]models.InstanceOverride, error) {
	index, records, err := readTable(s.path)
	if err != nil {
		return nil, err
	}

	overrides := make([]models.InstanceOverride, 0, len(records))
	for n, record := range records {
		var o models.InstanceOverride
		o.TransactionKey = field(record, index, "Transaction_Key")
		o.Category = field(record, index, "Category")
		o.SubCategory = field(record, index, "Sub-Category")
		o.Direction = field(record, index, "Direction")
		if o.OverrideDate, err = parseDate(field(record, index, "Override_Date")); err != nil {
			return nil, fmt.Errorf("instance override row %d: %w", n+1, err)
		}
		overrides = append(overrides, o)
	}
	return overrides, nil
}

func (s *InstanceOverrideStore) Save(overrides []models.InstanceOverride) error {
	records := make([][]string, 0, len(overrides))
	for _, o := range overrides {
		records = append(records, []string{
			o.TransactionKey,
			o.Category,
			o.SubCategory,
			o.Direction,
			formatTimestamp(o.OverrideDate),
		})
	}
	return writeTable(s.path, instanceOverridesHeader, records)
}
