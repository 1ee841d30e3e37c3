package handlers

import (
	"context"
	"net/http"

	"github.com/guardpost/apiserver/internal/services"
	"github.com/guardpost/apiserver/types"
)

// UserManager is the staff management surface of services.UserService.
type UserManager interface {
	List(ctx context.Context, filter types.UserFilter, offset, limit int) ([]types.User, int, error)
	GetByID(ctx context.Context, id string) (types.User, error)
	Create(ctx context.Context, input services.NewUser) (types.User, error)
	Update(ctx context.Context, id string, user types.User) (types.User, error)
	Deactivate(ctx context.Context, id string) error
}

// UserHandler serves staff management. Users are deactivated, never
// deleted.
type UserHandler struct {
	users UserManager
}

func NewUserHandler(users UserManager) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, _ := userFilter(r.URL.Query())

	users, total, err := h.users.List(r.Context(), filter, offset, limit)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(users, page, limit, total))
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.NewUser
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var user types.User
	if err := decodeJSON(w, r, &user); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.users.Update(r.Context(), id, user)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Deactivate flips the user to inactive and ends their sessions.
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.users.Deactivate(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
