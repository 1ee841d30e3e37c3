package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/guardpost/apiserver/internal/services"
	"github.com/guardpost/apiserver/types"
)

const multipartMemory = 8 << 20

// FileManager is implemented by services.FileService.
type FileManager interface {
	List(ctx context.Context, filter types.FileFilter, offset, limit int) ([]types.FileUpload, int, error)
	Get(ctx context.Context, id string) (types.FileUpload, error)
	Upload(ctx context.Context, up services.Upload) (types.FileUpload, error)
	Open(ctx context.Context, id string) (types.FileUpload, io.ReadCloser, error)
	Delete(ctx context.Context, id string) error
	Link(ctx context.Context, id string) (services.SharedLink, error)
	OpenShared(ctx context.Context, token string) (types.FileUpload, io.ReadCloser, error)
}

type FileHandler struct {
	files    FileManager
	maxBytes int64
}

func NewFileHandler(files FileManager, maxBytes int64) *FileHandler {
	if maxBytes <= 0 {
		maxBytes = 25 << 20
	}
	return &FileHandler{files: files, maxBytes: maxBytes}
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := fileFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	files, total, err := h.files.List(r.Context(), filter, offset, limit)
	if err != nil {
		writeServiceError(w, r, err, "file")
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(files, page, limit, total))
}

func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, err := h.files.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "file")
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// Upload accepts a multipart form with the fields file, entity_type and
// entity_id.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer part.Close()

	file, err := h.files.Upload(r.Context(), services.Upload{
		EntityType:  r.FormValue("entity_type"),
		EntityID:    r.FormValue("entity_id"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        part,
	})
	if err != nil {
		writeServiceError(w, r, err, "file")
		return
	}
	writeJSON(w, http.StatusCreated, file)
}

func (h *FileHandler) Content(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, body, err := h.files.Open(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "file")
		return
	}
	serveContent(w, file, body)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.files.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "file")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FileHandler) Link(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	link, err := h.files.Link(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "file")
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// Shared serves a file through a signed link without a session.
func (h *FileHandler) Shared(w http.ResponseWriter, r *http.Request) {
	file, body, err := h.files.OpenShared(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeServiceError(w, r, err, "file")
		return
	}
	serveContent(w, file, body)
}

func serveContent(w http.ResponseWriter, file types.FileUpload, body io.ReadCloser) {
	defer body.Close()

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if file.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(file.SizeBytes, 10))
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
