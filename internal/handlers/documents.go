package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/bullwork-fleet/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

const (
	maxDocumentMemory = 8 << 20
	maxDocumentBytes  = 32 << 20
	formFieldFile     = "file"
)

// UploadDocument stores a vehicle document in the object storage backend
// and records its metadata.
func (h *VehicleHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if h.documentService == nil {
		writeError(w, http.StatusServiceUnavailable, "Document storage is not configured")
		return
	}

	id, err := parseVehicleID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.vehicleService.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Vehicle not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	if err := r.ParseMultipartForm(maxDocumentMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File[formFieldFile]) != 1 {
		writeError(w, http.StatusBadRequest, "exactly one file is required")
		return
	}

	fileHeader := r.MultipartForm.File[formFieldFile][0]
	file, err := fileHeader.Open()
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	data, err := readFileLimited(file, maxDocumentBytes)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	doc, err := h.documentService.Upload(r.Context(), id, fileHeader.Filename, contentType, data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store document")
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// ListDocuments returns document metadata for a vehicle.
func (h *VehicleHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	if h.documentService == nil {
		writeError(w, http.StatusServiceUnavailable, "Document storage is not configured")
		return
	}

	id, err := parseVehicleID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.vehicleService.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Vehicle not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	docs, err := h.documentService.List(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// DownloadDocument streams the stored object back to the caller.
func (h *VehicleHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	if h.documentService == nil {
		writeError(w, http.StatusServiceUnavailable, "Document storage is not configured")
		return
	}

	id, err := parseVehicleID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	docID, err := strconv.Atoi(chi.URLParam(r, "documentID"))
	if err != nil || docID < 1 {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, reader, err := h.documentService.Open(r.Context(), id, docID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	defer reader.Close()

	if doc.ContentType != "" {
		w.Header().Set("Content-Type", doc.ContentType)
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
