package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/guardpost/apiserver/internal/auth"
)

// crudService is implemented by every service built on services.Resource.
type crudService[T any, F any] interface {
	List(ctx context.Context, filter F, offset, limit int) ([]T, int, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, id string, item T) (T, error)
	Delete(ctx context.Context, id string) error
}

// ResourceHandler serves list, get, create, update and delete for one
// entity type.
type ResourceHandler[T any, F any] struct {
	service crudService[T, F]
	entity  string
	filter  func(url.Values) (F, error)
}

func NewResourceHandler[T any, F any](service crudService[T, F], entity string, filter func(url.Values) (F, error)) *ResourceHandler[T, F] {
	return &ResourceHandler[T, F]{service: service, entity: entity, filter: filter}
}

// Routes returns the CRUD routes under base guarded by read and write.
func (h *ResourceHandler[T, F]) Routes(base string, read, write auth.Capability) []Route {
	return []Route{
		{Method: http.MethodGet, Pattern: base, Capability: read, Handler: h.List},
		{Method: http.MethodPost, Pattern: base, Capability: write, Handler: h.Create},
		{Method: http.MethodGet, Pattern: base + "/{id}", Capability: read, Handler: h.Get},
		{Method: http.MethodPut, Pattern: base + "/{id}", Capability: write, Handler: h.Update},
		{Method: http.MethodDelete, Pattern: base + "/{id}", Capability: write, Handler: h.Delete},
	}
}

func (h *ResourceHandler[T, F]) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var filter F
	if h.filter != nil {
		filter, err = h.filter(r.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	items, total, err := h.service.List(r.Context(), filter, offset, limit)
	if err != nil {
		writeServiceError(w, r, err, h.entity)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(items, page, limit, total))
}

func (h *ResourceHandler[T, F]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.entity)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ResourceHandler[T, F]) Create(w http.ResponseWriter, r *http.Request) {
	var item T
	if err := decodeJSON(w, r, &item); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), item)
	if err != nil {
		writeServiceError(w, r, err, h.entity)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ResourceHandler[T, F]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var item T
	if err := decodeJSON(w, r, &item); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.service.Update(r.Context(), id, item)
	if err != nil {
		writeServiceError(w, r, err, h.entity)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ResourceHandler[T, F]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, h.entity)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
