// backend/src/storage/registry.go
package storage

import (
	"fmt"
	"path/filepath"

	"github.com/username/finledger/backend/src/models"
)

var registryHeader = []string{"Bank", "Account", "Input", "Category_Source"}

// AccountRegistryStore reads the operator-maintained account registry
// (bank_mapping.csv). The pipeline treats it as configuration: the only
// mutation offered is updating an account's Category_Source.
type AccountRegistryStore struct {
	path string
}

func NewAccountRegistryStore(dataDir string) *AccountRegistryStore {
	return &AccountRegistryStore{path: filepath.Join(dataDir, "bank_mapping.csv")}
}

func (s *AccountRegistryStore) Load() ([]models.AccountRegistration, error) {
	index, records, err := readTable(s.path)
	if err != nil {
		return nil, err
	}

	accounts := make([]models.AccountRegistration, 0, len(records))
	for _, record := range records {
		accounts = append(accounts, models.AccountRegistration{
			Bank:           field(record, index, "Bank"),
			Account:        field(record, index, "Account"),
			Input:          field(record, index, "Input"),
			CategorySource: field(record, index, "Category_Source"),
		})
	}
	return accounts, nil
}

// ListAccounts returns the registrations with the given input mode.
func (s *AccountRegistryStore) ListAccounts(input string) ([]models.AccountRegistration, error) {
	accounts, err := s.Load()
	if err != nil {
		return nil, err
	}
	matched := accounts[:0]
	for _, a := range accounts {
		if a.Input == input {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

// UpdateCategorySource rewrites the Category_Source of one registration.
func (s *AccountRegistryStore) UpdateCategorySource(bank, account, categorySource string) error {
	accounts, err := s.Load()
	if err != nil {
		return err
	}

	found := false
	for i, a := range accounts {
		if a.Bank == bank && a.Account == account {
			accounts[i].CategorySource = categorySource
			found = true
		}
	}
	if !found {
		return fmt.Errorf("account %s/%s is not registered", bank, account)
	}

	records := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		records = append(records, []string{a.Bank, a.Account, a.Input, a.CategorySource})
	}
	return writeTable(s.path, registryHeader, records)
}
