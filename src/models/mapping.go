// backend/src/models/mapping.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// Rule and pair directions. "None" applies to both transaction types and
// leaves the row's Type untouched.
const (
	DirectionIn   = TypeIn
	DirectionOut  = TypeOut
	DirectionNone = TypeNone
)

// MappingPair is a unique (Category, Sub-Category, Direction) combination.
// Pairs are created lazily the first time a rule uses the combination.
type MappingPair struct {
	PairID      int    `json:"pair_id"`
	Category    string `json:"category"`
	SubCategory string `json:"sub_category"`
	Direction   string `json:"direction"`
}

// MappingRule matches transaction descriptions against a wildcard pattern
// ('*' matches any run of characters, everything else is literal) anchored to
// the whole lowercased description. Priority is derived from the pattern:
// exact patterns get len+100, wildcard patterns get len, so longer and more
// specific patterns win.
type MappingRule struct {
	RuleID     int    `json:"rule_id"`
	Pattern    string `json:"pattern"`
	PairID     int    `json:"pair_id"`
	Priority   int    `json:"priority"`
	IsWildcard bool   `json:"is_wildcard"`
}

// RulePriority derives the priority for a pattern.
func RulePriority(pattern string) (priority int, isWildcard bool) {
	isWildcard = strings.Contains(pattern, "*")
	if isWildcard {
		return len(pattern), true
	}
	return len(pattern) + 100, false
}

// AmountOverride recolors every transaction sharing the exact description and
// amount, regardless of date.
type AmountOverride struct {
	Description  string    `json:"transaction"`
	Amount       float64   `json:"amount"`
	Category     string    `json:"category"`
	SubCategory  string    `json:"sub_category"`
	Direction    string    `json:"direction"`
	OverrideDate time.Time `json:"override_date"`
}

// AmountOverrideKey is the lookup key for an amount override. The amount is
// compared as an exact float: source amounts are currency-rounded and the
// override is created from an existing ledger row, so both sides are the same
// parsed value.
func AmountOverrideKey(description string, amount float64) string {
	return description + "\x00" + FormatAmount(amount)
}

// InstanceOverride recolors exactly one ledger row, addressed by its
// transaction key.
type InstanceOverride struct {
	TransactionKey string    `json:"transaction_key"`
	Category       string    `json:"category"`
	SubCategory    string    `json:"sub_category"`
	Direction      string    `json:"direction"`
	OverrideDate   time.Time `json:"override_date"`
}

// BalanceEntry is a user-asserted true balance for a non-transactional
// account on a given date. Balance is always in EUR; the original amount and
// currency are kept when the entry was converted.
type BalanceEntry struct {
	Bank             string    `json:"bank"`
	Account          string    `json:"account"`
	Date             time.Time `json:"date"`
	Balance          float64   `json:"balance"`
	EnteredDate      time.Time `json:"entered_date"`
	OriginalBalance  *float64  `json:"original_balance,omitempty"`
	OriginalCurrency string    `json:"original_currency,omitempty"`
}

// Account registry input modes.
const (
	InputTransactions = "Transactions"
	InputBalance      = "Balance"
	InputFake         = "Fake"
)

// AccountRegistration is one row of the account registry. The registry is
// operator-maintained configuration; the pipeline only reads it.
type AccountRegistration struct {
	Bank           string `json:"bank"`
	Account        string `json:"account"`
	Input          string `json:"input"`
	CategorySource string `json:"category_source"`
}

// CategoryRef names a (Category, Sub-Category) pair mirrored into a linked
// account.
type CategoryRef struct {
	Category    string `json:"category"`
	SubCategory string `json:"sub_category"`
}

// ParseCategorySource parses the pipe-delimited Category_Source format
// "(Cat,Sub)|(Cat,Sub)". Malformed segments are dropped rather than failing
// the whole registration.
func ParseCategorySource(s string) []CategoryRef {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var refs []CategoryRef
	for _, segment := range strings.Split(s, "|") {
		segment = strings.TrimSpace(segment)
		if !strings.HasPrefix(segment, "(") || !strings.HasSuffix(segment, ")") {
			continue
		}
		parts := strings.Split(segment[1:len(segment)-1], ",")
		if len(parts) != 2 {
			continue
		}
		refs = append(refs, CategoryRef{
			Category:    strings.TrimSpace(parts[0]),
			SubCategory: strings.TrimSpace(parts[1]),
		})
	}
	return refs
}

// FormatCategorySource is the inverse of ParseCategorySource.
func FormatCategorySource(refs []CategoryRef) string {
	segments := make([]string, 0, len(refs))
	for _, ref := range refs {
		segments = append(segments, fmt.Sprintf("(%s,%s)", ref.Category, ref.SubCategory))
	}
	return strings.Join(segments, "|")
}

// ParsedCategories returns the registration's mirrored category pairs.
func (a AccountRegistration) ParsedCategories() []CategoryRef {
	return ParseCategorySource(a.CategorySource)
}
