// backend/src/handlers/pipeline_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/username/finledger/backend/src/logger"
	"github.com/username/finledger/backend/src/services"
	"github.com/username/finledger/backend/src/utils"
)

// PipelineHandler exposes the three pipeline stages and the combined
// refresh.
type PipelineHandler struct {
	pipeline *services.PipelineService
}

func NewPipelineHandler(pipeline *services.PipelineService) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline}
}

func (h *PipelineHandler) respond(w http.ResponseWriter, r *http.Request, stage string, run func() (any, error)) {
	ctxLogger := logger.FromContext(r.Context())
	result, err := run()
	if err != nil {
		if errors.Is(err, services.ErrNoFiles) {
			utils.SendJSONError(w, err.Error(), http.StatusConflict)
			return
		}
		ctxLogger.Error("Pipeline stage failed", "stage", stage, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, result, http.StatusOK)
}

func (h *PipelineHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "ingest", func() (any, error) { return h.pipeline.Ingest() })
}

func (h *PipelineHandler) HandleCategorize(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "categorize", func() (any, error) { return h.pipeline.Categorize() })
}

func (h *PipelineHandler) HandleSynthesize(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "synthesize", func() (any, error) { return h.pipeline.Synthesize() })
}

func (h *PipelineHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "refresh", func() (any, error) { return h.pipeline.Refresh() })
}
