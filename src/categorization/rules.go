// backend/src/categorization/rules.go
package categorization

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/username/finledger/backend/src/logger"
	"github.com/username/finledger/backend/src/models"
	"github.com/username/finledger/backend/src/storage"
)

// ErrValidation marks rule and override mutations rejected before anything
// was persisted.
var ErrValidation = errors.New("validation failed")

// RuleService owns the rule, pair and override tables and presents the
// denormalized view the engine consumes.
type RuleService struct {
	rules     *storage.RuleStore
	pairs     *storage.PairStore
	amounts   *storage.AmountOverrideStore
	instances *storage.InstanceOverrideStore
}

func NewRuleService(
	rules *storage.RuleStore,
	pairs *storage.PairStore,
	amounts *storage.AmountOverrideStore,
	instances *storage.InstanceOverrideStore,
) *RuleService {
	return &RuleService{rules: rules, pairs: pairs, amounts: amounts, instances: instances}
}

// Rules loads the rules joined with their pairs. A rule referencing a missing
// pair is kept with empty categories rather than dropped, matching how the
// tables behaved before pairs existed.
func (s *RuleService) Rules() ([]Rule, error) {
	rawRules, err := s.rules.Load()
	if err != nil {
		return nil, err
	}
	pairs, err := s.pairs.Load()
	if err != nil {
		return nil, err
	}

	byID := make(map[int]models.MappingPair, len(pairs))
	for _, p := range pairs {
		byID[p.PairID] = p
	}

	rules := make([]Rule, 0, len(rawRules))
	for _, r := range rawRules {
		pair := byID[r.PairID]
		rules = append(rules, Rule{
			RuleID:      r.RuleID,
			Pattern:     r.Pattern,
			Category:    pair.Category,
			SubCategory: pair.SubCategory,
			Direction:   pair.Direction,
			Priority:    r.Priority,
			IsWildcard:  r.IsWildcard,
		})
	}
	return rules, nil
}

// Pairs loads the unique category combinations.
func (s *RuleService) Pairs() ([]models.MappingPair, error) {
	return s.pairs.Load()
}

// Overrides loads both override tiers keyed for the engine.
func (s *RuleService) Overrides() (Overrides, error) {
	amounts, err := s.amounts.Load()
	if err != nil {
		return Overrides{}, err
	}
	instances, err := s.instances.Load()
	if err != nil {
		return Overrides{}, err
	}

	out := Overrides{
		Amount:   make(map[string]Override, len(amounts)),
		Instance: make(map[string]Override, len(instances)),
	}
	for _, o := range amounts {
		out.Amount[models.AmountOverrideKey(o.Description, o.Amount)] = Override{
			Category:    o.Category,
			SubCategory: o.SubCategory,
			Direction:   o.Direction,
		}
	}
	for _, o := range instances {
		out.Instance[o.TransactionKey] = Override{
			Category:    o.Category,
			SubCategory: o.SubCategory,
			Direction:   o.Direction,
		}
	}
	return out, nil
}

// Categorize runs the full three-tier engine over a ledger.
func (s *RuleService) Categorize(ledger []models.Transaction) ([]models.Transaction, error) {
	rules, err := s.Rules()
	if err != nil {
		return nil, err
	}
	overrides, err := s.Overrides()
	if err != nil {
		return nil, err
	}
	return Apply(ledger, rules, overrides), nil
}

func validDirection(direction string) bool {
	switch direction {
	case models.DirectionIn, models.DirectionOut, models.DirectionNone:
		return true
	}
	return false
}

// AddRule validates and persists a new mapping rule, creating its pair when
// the (category, sub-category, direction) combination is first used. All
// validation happens before any table is written, so a rejected rule never
// partially persists.
func (s *RuleService) AddRule(pattern, category, subCategory, direction string) (int, error) {
	if pattern == "" || category == "" || subCategory == "" || direction == "" {
		return 0, fmt.Errorf("%w: pattern, category, sub-category and direction are all required", ErrValidation)
	}
	if !validDirection(direction) {
		return 0, fmt.Errorf("%w: direction must be In, Out or None", ErrValidation)
	}
	if _, err := CompilePattern(pattern); err != nil {
		return 0, fmt.Errorf("%w: invalid pattern %q", ErrValidation, pattern)
	}

	rules, err := s.rules.Load()
	if err != nil {
		return 0, err
	}
	for _, r := range rules {
		if strings.EqualFold(r.Pattern, pattern) {
			return 0, fmt.Errorf("%w: rule with pattern %q already exists", ErrValidation, pattern)
		}
	}

	pairID, err := s.resolvePair(category, subCategory, direction)
	if err != nil {
		return 0, err
	}

	priority, isWildcard := models.RulePriority(pattern)
	ruleID := 1
	for _, r := range rules {
		if r.RuleID >= ruleID {
			ruleID = r.RuleID + 1
		}
	}

	rules = append(rules, models.MappingRule{
		RuleID:     ruleID,
		Pattern:    pattern,
		PairID:     pairID,
		Priority:   priority,
		IsWildcard: isWildcard,
	})
	if err := s.rules.Save(rules); err != nil {
		return 0, err
	}

	logger.L.Info("Mapping rule added", "ruleID", ruleID, "pattern", pattern, "priority", priority)
	return ruleID, nil
}

// resolvePair returns the pair ID for the combination, creating and
// persisting a new pair when none exists yet.
func (s *RuleService) resolvePair(category, subCategory, direction string) (int, error) {
	pairs, err := s.pairs.Load()
	if err != nil {
		return 0, err
	}
	nextID := 1
	for _, p := range pairs {
		if p.Category == category && p.SubCategory == subCategory && p.Direction == direction {
			return p.PairID, nil
		}
		if p.PairID >= nextID {
			nextID = p.PairID + 1
		}
	}

	pairs = append(pairs, models.MappingPair{
		PairID:      nextID,
		Category:    category,
		SubCategory: subCategory,
		Direction:   direction,
	})
	if err := s.pairs.Save(pairs); err != nil {
		return 0, err
	}
	return nextID, nil
}

// DeleteRule removes a rule by ID. Its pair stays: other rules may share it.
func (s *RuleService) DeleteRule(ruleID int) error {
	rules, err := s.rules.Load()
	if err != nil {
		return err
	}
	kept := rules[:0]
	for _, r := range rules {
		if r.RuleID != ruleID {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(rules) {
		return fmt.Errorf("%w: rule %d does not exist", ErrValidation, ruleID)
	}
	return s.rules.Save(kept)
}

// ApplyRuleToUncategorized re-categorizes only the still-uncategorized rows
// matching the pattern and direction, so a freshly created rule shows up
// without a full pipeline re-run. The updated ledger is returned together
// with whether any row changed.
func (s *RuleService) ApplyRuleToUncategorized(ledger []models.Transaction, pattern, direction string) ([]models.Transaction, bool, error) {
	re, err := CompilePattern(pattern)
	if err != nil {
		return nil, false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var subset []models.Transaction
	var positions []int
	for i, tx := range ledger {
		if tx.Category != models.CategoryUncategorized {
			continue
		}
		if !re.MatchString(strings.ToLower(tx.Description)) {
			continue
		}
		if direction != models.DirectionNone && tx.Type != direction {
			continue
		}
		subset = append(subset, tx)
		positions = append(positions, i)
	}
	if len(subset) == 0 {
		return ledger, false, nil
	}

	// Re-run the whole engine on the subset so priorities and overrides are
	// still respected against the new rule.
	mapped, err := s.Categorize(subset)
	if err != nil {
		return nil, false, err
	}

	out := make([]models.Transaction, len(ledger))
	copy(out, ledger)
	for n, i := range positions {
		out[i] = mapped[n]
	}
	return out, true, nil
}

// SetAmountOverride adds or replaces the override for (description, amount).
func (s *RuleService) SetAmountOverride(description string, amount float64, category, subCategory, direction string) error {
	if description == "" || category == "" || subCategory == "" || !validDirection(direction) {
		return fmt.Errorf("%w: description, category, sub-category and a valid direction are required", ErrValidation)
	}

	overrides, err := s.amounts.Load()
	if err != nil {
		return err
	}
	entry := models.AmountOverride{
		Description:  description,
		Amount:       amount,
		Category:     category,
		SubCategory:  subCategory,
		Direction:    direction,
		OverrideDate: time.Now(),
	}
	replaced := false
	for i, o := range overrides {
		if o.Description == description && o.Amount == amount {
			overrides[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		overrides = append(overrides, entry)
	}
	return s.amounts.Save(overrides)
}

// RemoveAmountOverride deletes the override for (description, amount).
func (s *RuleService) RemoveAmountOverride(description string, amount float64) error {
	overrides, err := s.amounts.Load()
	if err != nil {
		return err
	}
	kept := overrides[:0]
	for _, o := range overrides {
		if o.Description == description && o.Amount == amount {
			continue
		}
		kept = append(kept, o)
	}
	return s.amounts.Save(kept)
}

// AmountOverrides lists the amount override table.
func (s *RuleService) AmountOverrides() ([]models.AmountOverride, error) {
	return s.amounts.Load()
}

// SetInstanceOverride adds or replaces the override for one transaction key.
func (s *RuleService) SetInstanceOverride(transactionKey, category, subCategory, direction string) error {
	if transactionKey == "" || category == "" || subCategory == "" || !validDirection(direction) {
		return fmt.Errorf("%w: transaction key, category, sub-category and a valid direction are required", ErrValidation)
	}

	overrides, err := s.instances.Load()
	if err != nil {
		return err
	}
	entry := models.InstanceOverride{
		TransactionKey: transactionKey,
		Category:       category,
		SubCategory:    subCategory,
		Direction:      direction,
		OverrideDate:   time.Now(),
	}
	replaced := false
	for i, o := range overrides {
		if o.TransactionKey == transactionKey {
			overrides[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		overrides = append(overrides, entry)
	}
	return s.instances.Save(overrides)
}

// RemoveInstanceOverride deletes the override for a transaction key.
func (s *RuleService) RemoveInstanceOverride(transactionKey string) error {
	overrides, err := s.instances.Load()
	if err != nil {
		return err
	}
	kept := overrides[:0]
	for _, o := range overrides {
		if o.TransactionKey == transactionKey {
			continue
		}
		kept = append(kept, o)
	}
	return s.instances.Save(kept)
}

// InstanceOverrides lists the instance override table.
func (s *RuleService) InstanceOverrides() ([]models.InstanceOverride, error) {
	return s.instances.Load()
}
