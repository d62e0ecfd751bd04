package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/username/finassist/backend/src/config"
	"github.com/username/finassist/backend/src/logger"
	"github.com/username/finassist/backend/src/security/validation"
	"github.com/username/finassist/backend/src/services"
)

// ImportHandler accepts broker statement CSV uploads and feeds them through
// the import service.
type ImportHandler struct {
	importService *services.ImportService
}

func NewImportHandler(importService *services.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// HandleImportTransactions takes a multipart upload with a "file" field
// containing a transaction statement CSV and records its rows against the
// user's portfolio.
func (h *ImportHandler) HandleImportTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	log := logger.FromContext(r.Context())

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		log.Warn("failed to parse multipart form or request too large", "userID", userID, "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		sendJSONError(w, fmt.Sprintf("failed to process upload, file may be too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		log.Warn("failed to retrieve file from request", "userID", userID, "error", err)
		sendJSONError(w, "failed to retrieve file from request, use the 'file' field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		log.Warn("uploaded file too large", "userID", userID, "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		sendJSONError(w, fmt.Sprintf("file too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		log.Warn("invalid client-declared file type", "userID", userID, "contentType", clientContentType, "error", err)
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	detectedContentType, err := validation.ValidateFileContentByMagicBytes(file)
	if err != nil {
		log.Warn("file content validation failed", "userID", userID, "filename", fileHeader.Filename, "error", err)
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Info("processing statement import", "userID", userID, "filename", fileHeader.Filename, "detectedType", detectedContentType)

	result, err := h.importService.ProcessImport(userID, file)
	if err != nil {
		log.Error("statement import failed", "userID", userID, "filename", fileHeader.Filename, "error", err)
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Error("error encoding import result", "userID", userID, "error", err)
	}
}
