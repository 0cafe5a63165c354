// backend/src/handlers/upload_handler.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/username/finledger/backend/src/config"
	"github.com/username/finledger/backend/src/logger"
	"github.com/username/finledger/backend/src/security/validation"
	"github.com/username/finledger/backend/src/services"
	"github.com/username/finledger/backend/src/utils"
)

// UploadHandler receives raw bank export files.
type UploadHandler struct {
	files *services.FileService
}

func NewUploadHandler(files *services.FileService) *UploadHandler {
	return &UploadHandler{files: files}
}

func (h *UploadHandler) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	records, err := h.files.List()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load files summary", "error", err)
		utils.SendJSONError(w, "failed to load files summary", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, records, http.StatusOK)
}

// HandleUpload accepts a multipart upload with "file", "bank" and "account"
// fields and registers the file for ingestion.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		ctxLogger.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("failed to parse upload or file too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	bank := r.FormValue("bank")
	account := r.FormValue("account")
	if bank == "" || account == "" {
		utils.SendJSONError(w, "bank and account form fields are required", http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		ctxLogger.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "failed to retrieve file from request, ensure the 'file' field is used", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		utils.SendJSONError(w, fmt.Sprintf("file too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}
	if contentType := fileHeader.Header.Get("Content-Type"); contentType != "" {
		if err := validation.ValidateClientContentType(contentType); err != nil {
			ctxLogger.Warn("Invalid client-declared file type", "contentType", contentType, "error", err)
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	record, err := h.files.SaveUpload(file, fileHeader.Filename, bank, account)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownAccount), errors.Is(err, services.ErrParsingFailed):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			ctxLogger.Error("Failed to store uploaded file", "file", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	utils.SendJSON(w, record, http.StatusCreated)
}

func (h *UploadHandler) HandleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "fileName")
	if fileName == "" {
		utils.SendJSONError(w, "file name is required", http.StatusBadRequest)
		return
	}
	if err := h.files.Delete(fileName); err != nil {
		logger.FromContext(r.Context()).Error("Failed to delete raw file", "file", fileName, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, nil, http.StatusNoContent)
}
