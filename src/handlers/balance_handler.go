// backend/src/handlers/balance_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/username/finledger/backend/src/logger"
	"github.com/username/finledger/backend/src/models"
	"github.com/username/finledger/backend/src/security/validation"
	"github.com/username/finledger/backend/src/services"
	"github.com/username/finledger/backend/src/utils"
)

// BalanceHandler manages manual balance snapshots and the account registry
// views backing them.
type BalanceHandler struct {
	balances *services.BalanceService
}

func NewBalanceHandler(balances *services.BalanceService) *BalanceHandler {
	return &BalanceHandler{balances: balances}
}

func (h *BalanceHandler) HandleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.balances.List()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load balance entries", "error", err)
		utils.SendJSONError(w, "failed to load balance entries", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, entries, http.StatusOK)
}

// HandleListAccounts lists registrations, filtered by the optional "input"
// query parameter (Transactions, Balance or Fake).
func (h *BalanceHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("input")
	if input == "" {
		input = models.InputBalance
	}
	accounts, err := h.balances.Accounts(input)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load account registry", "error", err)
		utils.SendJSONError(w, "failed to load account registry", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, accounts, http.StatusOK)
}

type addEntryRequest struct {
	Bank     string  `json:"bank"`
	Account  string  `json:"account"`
	Date     string  `json:"date"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

func (h *BalanceHandler) HandleAddEntry(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req addEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	date, err := validation.ValidateDateString(req.Date, "date")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Currency != "" {
		if err := validation.ValidateCurrencyCode(req.Currency); err != nil {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	entry, err := h.balances.AddEntry(r.Context(), req.Bank, req.Account, date, req.Balance, req.Currency)
	if err != nil {
		if errors.Is(err, services.ErrUnknownAccount) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		ctxLogger.Error("Failed to add balance entry", "bank", req.Bank, "account", req.Account, "error", err)
		utils.SendJSONError(w, "failed to add balance entry", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, entry, http.StatusCreated)
}

func (h *BalanceHandler) HandleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	bank := r.URL.Query().Get("bank")
	account := r.URL.Query().Get("account")
	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if bank == "" || account == "" || err != nil {
		utils.SendJSONError(w, "bank, account and date query parameters are required", http.StatusBadRequest)
		return
	}
	if err := h.balances.RemoveEntry(bank, account, date); err != nil {
		logger.FromContext(r.Context()).Error("Failed to remove balance entry", "error", err)
		utils.SendJSONError(w, "failed to remove balance entry", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, nil, http.StatusNoContent)
}

type categorySourceRequest struct {
	Bank       string               `json:"bank"`
	Account    string               `json:"account"`
	Categories []models.CategoryRef `json:"categories"`
}

// HandleUpdateCategorySource rewrites which category pairs are mirrored into
// a registered account.
func (h *BalanceHandler) HandleUpdateCategorySource(w http.ResponseWriter, r *http.Request) {
	var req categorySourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Bank == "" || req.Account == "" {
		utils.SendJSONError(w, "bank and account are required", http.StatusBadRequest)
		return
	}
	if err := h.balances.UpdateCategorySource(req.Bank, req.Account, req.Categories); err != nil {
		logger.FromContext(r.Context()).Error("Failed to update category source",
			"bank", req.Bank, "account", req.Account, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, nil, http.StatusNoContent)
}
