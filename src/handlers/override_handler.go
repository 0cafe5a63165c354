// backend/src/handlers/override_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/username/finledger/backend/src/categorization"
	"github.com/username/finledger/backend/src/logger"
	"github.com/username/finledger/backend/src/security/validation"
	"github.com/username/finledger/backend/src/utils"
)

// OverrideHandler manages amount-level and instance-level category
// overrides.
type OverrideHandler struct {
	rules *categorization.RuleService
}

func NewOverrideHandler(rules *categorization.RuleService) *OverrideHandler {
	return &OverrideHandler{rules: rules}
}

func (h *OverrideHandler) HandleListAmountOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.rules.AmountOverrides()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load amount overrides", "error", err)
		utils.SendJSONError(w, "failed to load amount overrides", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, overrides, http.StatusOK)
}

type amountOverrideRequest struct {
	Description string  `json:"transaction"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	SubCategory string  `json:"sub_category"`
	Direction   string  `json:"direction"`
}

func (h *OverrideHandler) HandleSetAmountOverride(w http.ResponseWriter, r *http.Request) {
	var req amountOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Category = validation.SanitizeText(req.Category)
	req.SubCategory = validation.SanitizeText(req.SubCategory)

	err := h.rules.SetAmountOverride(req.Description, req.Amount, req.Category, req.SubCategory, req.Direction)
	if err != nil {
		if errors.Is(err, categorization.ErrValidation) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to save amount override", "error", err)
		utils.SendJSONError(w, "failed to save amount override", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, nil, http.StatusNoContent)
}

func (h *OverrideHandler) HandleRemoveAmountOverride(w http.ResponseWriter, r *http.Request) {
	description := r.URL.Query().Get("transaction")
	amountStr := r.URL.Query().Get("amount")
	amount, err := strconv.ParseFloat(amountStr, 64)
	if description == "" || err != nil {
		utils.SendJSONError(w, "transaction and amount query parameters are required", http.StatusBadRequest)
		return
	}
	if err := h.rules.RemoveAmountOverride(description, amount); err != nil {
		logger.FromContext(r.Context()).Error("Failed to remove amount override", "error", err)
		utils.SendJSONError(w, "failed to remove amount override", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, nil, http.StatusNoContent)
}

func (h *OverrideHandler) HandleListInstanceOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.rules.InstanceOverrides()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load instance overrides", "error", err)
		utils.SendJSONError(w, "failed to load instance overrides", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, overrides, http.StatusOK)
}

type instanceOverrideRequest struct {
	TransactionKey string `json:"transaction_key"`
	Category       string `json:"category"`
	SubCategory    string `json:"sub_category"`
	Direction      string `json:"direction"`
}

func (h *OverrideHandler) HandleSetInstanceOverride(w http.ResponseWriter, r *http.Request) {
	var req instanceOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Category = validation.SanitizeText(req.Category)
	req.SubCategory = validation.SanitizeText(req.SubCategory)

	err := h.rules.SetInstanceOverride(req.TransactionKey, req.Category, req.SubCategory, req.Direction)
	if err != nil {
		if errors.Is(err, categorization.ErrValidation) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to save instance override", "error", err)
		utils.SendJSONError(w, "failed to save instance override", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, nil, http.StatusNoContent)
}

func (h *OverrideHandler) HandleRemoveInstanceOverride(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("transaction_key")
	if key == "" {
		utils.SendJSONError(w, "transaction_key query parameter is required", http.StatusBadRequest)
		return
	}
	if err := h.rules.RemoveInstanceOverride(key); err != nil {
		logger.FromContext(r.Context()).Error("Failed to remove instance override", "error", err)
		utils.SendJSONError(w, "failed to remove instance override", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, nil, http.StatusNoContent)
}
