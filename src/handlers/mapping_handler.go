// backend/src/handlers/mapping_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/username/finledger/backend/src/categorization"
	"github.com/username/finledger/backend/src/logger"
	"github.com/username/finledger/backend/src/models"
	"github.com/username/finledger/backend/src/security/validation"
	"github.com/username/finledger/backend/src/services"
	"github.com/username/finledger/backend/src/utils"
)

// MappingHandler manages categorization rules and pairs.
type MappingHandler struct {
	rules    *categorization.RuleService
	pipeline *services.PipelineService
}

func NewMappingHandler(rules *categorization.RuleService, pipeline *services.PipelineService) *MappingHandler {
	return &MappingHandler{rules: rules, pipeline: pipeline}
}

func (h *MappingHandler) HandleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.Rules()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load mapping rules", "error", err)
		utils.SendJSONError(w, "failed to load mapping rules", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, rules, http.StatusOK)
}

func (h *MappingHandler) HandleListPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.rules.Pairs()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load mapping pairs", "error", err)
		utils.SendJSONError(w, "failed to load mapping pairs", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, pairs, http.StatusOK)
}

type createRuleRequest struct {
	Pattern     string `json:"pattern"`
	Category    string `json:"category"`
	SubCategory string `json:"sub_category"`
	Direction   string `json:"direction"`
}

// HandleCreateRule validates and persists a new rule, then immediately
// recolors the still-uncategorized ledger rows it matches.
func (h *MappingHandler) HandleCreateRule(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Pattern = validation.SanitizeText(req.Pattern)
	req.Category = validation.SanitizeText(req.Category)
	req.SubCategory = validation.SanitizeText(req.SubCategory)
	for field, value := range map[string]string{"category": req.Category, "sub_category": req.SubCategory} {
		if err := validation.CheckXSSPatterns(value, field, req.Pattern); err != nil {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := validation.CheckFormulaInjection(value, field, req.Pattern); err != nil {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	ruleID, err := h.rules.AddRule(req.Pattern, req.Category, req.SubCategory, req.Direction)
	if err != nil {
		if errors.Is(err, categorization.ErrValidation) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		ctxLogger.Error("Failed to create mapping rule", "error", err)
		utils.SendJSONError(w, "failed to create mapping rule", http.StatusInternalServerError)
		return
	}

	ledger, err := h.pipeline.Ledger()
	if err == nil {
		updated, changed, applyErr := h.rules.ApplyRuleToUncategorized(ledger, req.Pattern, req.Direction)
		if applyErr == nil && changed {
			err = h.pipeline.SaveLedger(updated)
		} else {
			err = applyErr
		}
	}
	if err != nil {
		ctxLogger.Warn("Rule saved but immediate recolor failed", "ruleID", ruleID, "error", err)
	}

	utils.SendJSON(w, map[string]int{"rule_id": ruleID}, http.StatusCreated)
}

func (h *MappingHandler) HandleDeleteRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := strconv.Atoi(chi.URLParam(r, "ruleID"))
	if err != nil {
		utils.SendJSONError(w, "invalid rule ID", http.StatusBadRequest)
		return
	}
	if err := h.rules.DeleteRule(ruleID); err != nil {
		if errors.Is(err, categorization.ErrValidation) {
			utils.SendJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to delete mapping rule", "ruleID", ruleID, "error", err)
		utils.SendJSONError(w, "failed to delete mapping rule", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, nil, http.StatusNoContent)
}

type testRuleResponse struct {
	Uncategorized []models.Transaction `json:"uncategorized"`
	Categorized   []models.Transaction `json:"categorized"`
}

// HandleTestRule previews which ledger rows a candidate pattern would match,
// split by whether they are already categorized.
func (h *MappingHandler) HandleTestRule(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	direction := r.URL.Query().Get("direction")
	if pattern == "" {
		utils.SendJSONError(w, "pattern query parameter is required", http.StatusBadRequest)
		return
	}
	if direction == "" {
		direction = models.DirectionNone
	}

	ledger, err := h.pipeline.Ledger()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load ledger", "error", err)
		utils.SendJSONError(w, "failed to load ledger", http.StatusInternalServerError)
		return
	}

	uncategorized, categorized, err := categorization.TestRule(ledger, pattern, direction)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, testRuleResponse{Uncategorized: uncategorized, Categorized: categorized}, http.StatusOK)
}
