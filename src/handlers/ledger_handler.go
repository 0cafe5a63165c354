// backend/src/handlers/ledger_handler.go
package handlers

import (
	"net/http"

	"github.com/username/finledger/backend/src/categorization"
	"github.com/username/finledger/backend/src/logger"
	"github.com/username/finledger/backend/src/services"
	"github.com/username/finledger/backend/src/utils"
)

// LedgerHandler serves read views over the consolidated ledger.
type LedgerHandler struct {
	pipeline *services.PipelineService
}

func NewLedgerHandler(pipeline *services.PipelineService) *LedgerHandler {
	return &LedgerHandler{pipeline: pipeline}
}

func (h *LedgerHandler) HandleGetLedger(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.pipeline.Ledger()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load ledger", "error", err)
		utils.SendJSONError(w, "failed to load ledger", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, ledger, http.StatusOK)
}

// HandleUncategorized lists distinct uncategorized descriptions with their
// occurrence counts, most frequent first.
func (h *LedgerHandler) HandleUncategorized(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.pipeline.Ledger()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load ledger", "error", err)
		utils.SendJSONError(w, "failed to load ledger", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, categorization.DistinctUncategorized(ledger), http.StatusOK)
}
