// backend/src/categorization/engine.go

// Package categorization assigns Category/Sub-Category/Type to ledger rows
// through three tiers, each strictly overriding the previous one: wildcard
// pattern rules, amount-scoped overrides, and per-row instance overrides.
package categorization

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/username/finledger/backend/src/models"
)

// Rule is the denormalized view of a mapping rule joined with its pair.
type Rule struct {
	RuleID      int    `json:"rule_id"`
	Pattern     string `json:"pattern"`
	Category    string `json:"category"`
	SubCategory string `json:"sub_category"`
	Direction   string `json:"direction"`
	Priority    int    `json:"priority"`
	IsWildcard  bool   `json:"is_wildcard"`
}

// Override is the category assignment carried by an amount or instance
// override.
type Override struct {
	Category    string
	SubCategory string
	Direction   string
}

// Overrides bundles the two override tiers, keyed for direct lookup.
type Overrides struct {
	Amount   map[string]Override // keyed by models.AmountOverrideKey
	Instance map[string]Override // keyed by transaction key
}

// CompilePattern converts a wildcard pattern into an anchored,
// case-insensitive regular expression: '*' matches any run of characters,
// everything else is literal, and the pattern must cover the whole
// description.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	escaped := regexp.QuoteMeta(strings.ToLower(pattern))
	escaped = strings.ReplaceAll(escaped, `\*`, `.*`)
	return regexp.Compile(`^` + escaped + `$`)
}

// MatchPattern reports whether a description matches a wildcard pattern.
func MatchPattern(text, pattern string) bool {
	re, err := CompilePattern(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(strings.ToLower(text))
}

// Apply categorizes a ledger. It returns a new slice and never adds or
// removes rows; a row not covered by a tier keeps the value of the previous
// tier.
func Apply(ledger []models.Transaction, rules []Rule, overrides Overrides) []models.Transaction {
	out := make([]models.Transaction, len(ledger))
	copy(out, ledger)
	if len(out) == 0 {
		return out
	}

	// Instance overrides key on fields categorization never touches, so the
	// keys can be computed up front.
	keys := make([]string, len(out))
	for i, tx := range out {
		keys[i] = tx.Key()
	}

	// Tier 1: rules, lowest priority first. Applying them in ascending order
	// means the highest-priority matching rule writes last and wins.
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].RuleID < sorted[j].RuleID
	})

	for _, rule := range sorted {
		re, err := CompilePattern(rule.Pattern)
		if err != nil {
			continue
		}
		for i := range out {
			if !re.MatchString(strings.ToLower(out[i].Description)) {
				continue
			}
			// A direction-scoped rule only recolors rows already flowing
			// that way; "None" applies to both and keeps the row's Type.
			if rule.Direction != models.DirectionNone && out[i].Type != rule.Direction {
				continue
			}
			out[i].Category = rule.Category
			out[i].SubCategory = rule.SubCategory
		}
	}

	// Tier 2: amount overrides.
	for i := range out {
		o, ok := overrides.Amount[models.AmountOverrideKey(out[i].Description, out[i].Amount)]
		if !ok {
			continue
		}
		applyOverride(&out[i], o)
	}

	// Tier 3: instance overrides.
	for i := range out {
		o, ok := overrides.Instance[keys[i]]
		if !ok {
			continue
		}
		applyOverride(&out[i], o)
	}

	return out
}

func applyOverride(tx *models.Transaction, o Override) {
	tx.Category = o.Category
	tx.SubCategory = o.SubCategory
	if o.Direction != models.DirectionNone && o.Direction != "" {
		tx.Type = o.Direction
	}
}

// TestRule previews a pattern against the ledger, split into the rows it
// would newly categorize and the rows already colored by something else.
func TestRule(ledger []models.Transaction, pattern, direction string) (uncategorized, categorized []models.Transaction, err error) {
	re, err := CompilePattern(pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	for _, tx := range ledger {
		if !re.MatchString(strings.ToLower(tx.Description)) {
			continue
		}
		if direction != models.DirectionNone && tx.Type != direction {
			continue
		}
		if tx.Category == models.CategoryUncategorized {
			uncategorized = append(uncategorized, tx)
		} else {
			categorized = append(categorized, tx)
		}
	}
	return uncategorized, categorized, nil
}

// UncategorizedSummary aggregates the ledger rows still uncategorized that
// share a description.
type UncategorizedSummary struct {
	Description string    `json:"transaction"`
	Count       int       `json:"count"`
	LastDate    time.Time `json:"max_date"`
	AvgAmount   float64   `json:"avg_amount"`
}

// DistinctUncategorized summarizes the uncategorized rows by description,
// most frequent first.
func DistinctUncategorized(ledger []models.Transaction) []UncategorizedSummary {
	byDesc := make(map[string]*UncategorizedSummary)
	sums := make(map[string]float64)
	var order []string

	for _, tx := range ledger {
		if tx.Category != models.CategoryUncategorized {
			continue
		}
		s, ok := byDesc[tx.Description]
		if !ok {
			s = &UncategorizedSummary{Description: tx.Description}
			byDesc[tx.Description] = s
			order = append(order, tx.Description)
		}
		s.Count++
		sums[tx.Description] += tx.Amount
		if tx.TransactionDate.After(s.LastDate) {
			s.LastDate = tx.TransactionDate
		}
	}

	out := make([]UncategorizedSummary, 0, len(order))
	for _, desc := range order {
		s := byDesc[desc]
		s.AvgAmount = sums[desc] / float64(s.Count)
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Description < out[j].Description
	})
	return out
}
