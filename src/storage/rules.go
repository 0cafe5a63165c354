// backend/src/storage/rules.go
package storage

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/username/finledger/backend/src/models"
)

var (
	rulesHeader = []string{"Rule_ID", "Pattern", "Pair_ID", "Priority", "Is_Wildcard"}
	pairsHeader = []string{"Pair_ID", "Category", "Sub-Category", "Direction"}
)

// RuleStore persists mapping rules (patterns referencing a pair by ID).
type RuleStore struct {
	path string
}

func NewRuleStore(dataDir string) *RuleStore {
	return &RuleStore{path: filepath.Join(dataDir, "mapping_rules.csv")}
}

func (s *RuleStore) Load() ([]models.MappingRule, error) {
	index, records, err := readTable(s.path)
	if err != nil {
		return nil, err
	}

	rules := make([]models.MappingRule, 0, len(records))
	for n, record := range records {
		var rule models.MappingRule
		if rule.RuleID, err = parseInt(field(record, index, "Rule_ID")); err != nil {
			return nil, fmt.Errorf("rule row %d: %w", n+1, err)
		}
		rule.Pattern = field(record, index, "Pattern")
		if rule.PairID, err = parseInt(field(record, index, "Pair_ID")); err != nil {
			return nil, fmt.Errorf("rule row %d: %w", n+1, err)
		}
		if rule.Priority, err = parseInt(field(record, index, "Priority")); err != nil {
			return nil, fmt.Errorf("rule row %d: %w", n+1, err)
		}
		rule.IsWildcard = parseBool(field(record, index, "Is_Wildcard"))
		rules = append(rules, rule)
	}
	return rules, nil
}

func (s *RuleStore) Save(rules []models.MappingRule) error {
	records := make([][]string, 0, len(rules))
	for _, rule := range rules {
		records = append(records, []string{
			strconv.Itoa(rule.RuleID),
			rule.Pattern,
			strconv.Itoa(rule.PairID),
			strconv.Itoa(rule.Priority),
			formatBool(rule.IsWildcard),
		})
	}
	return writeTable(s.path, rulesHeader, records)
}

// PairStore persists the unique (Category, Sub-Category, Direction) pairs.
type PairStore struct {
	path string
}

func NewPairStore(dataDir string) *PairStore {
	return &PairStore{path: filepath.Join(dataDir, "mapping_pairs.csv")}
}

func (s *PairStore) Load() ([]models.MappingPair, error) {
	index, records, err := readTable(s.path)
	if err != nil {
		return nil, err
	}

	pairs := make([]models.MappingPair, 0, len(records))
	for n, record := range records {
		var pair models.MappingPair
		if pair.PairID, err = parseInt(field(record, index, "Pair_ID")); err != nil {
			return nil, fmt.Errorf("pair row %d: %w", n+1, err)
		}
		pair.Category = field(record, index, "Category")
		pair.SubCategory = field(record, index, "Sub-Category")
		pair.Direction = field(record, index, "Direction")
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

func (s *PairStore) Save(pairs []models.MappingPair) error {
	records := make([][]string, 0, len(pairs))
	for _, pair := range pairs {
		records = append(records, []string{
			strconv.Itoa(pair.PairID),
			pair.Category,
			pair.SubCategory,
			pair.Direction,
		})
	}
	return writeTable(s.path, pairsHeader, records)
}

// Historical tables hold python-style "True"/"False"; accept both spellings.
func parseBool(s string) bool {
	return s == "True" || s == "true"
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
