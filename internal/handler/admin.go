package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/examhall/examhall/internal/model"
)

type userView struct {
	ID          int64          `json:"id"`
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email,omitempty"`
	Role        model.UserRole `json:"role"`
	Active      bool           `json:"active"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{
			ID: u.ID, Username: u.Username, DisplayName: u.DisplayName,
			Email: u.Email, Role: u.Role, Active: u.Active,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

type createUserRequest struct {
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Password    string         `json:"password"`
	Role        model.UserRole `json:"role"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if req.Username == "" || req.Password == "" {
		h.writeError(w, r, fmt.Errorf("username and password are required: %w", model.ErrInvalidInput))
		return
	}
	switch req.Role {
	case model.UserRoleSetter, model.UserRoleTaker, model.UserRoleAdmin:
	default:
		h.writeError(w, r, fmt.Errorf("unknown role %q: %w", req.Role, model.ErrInvalidInput))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		h.writeError(w, r, err)
		return
	}

	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	id, err := h.store.CreateUser(model.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, userView{
		ID: id, Username: req.Username, DisplayName: req.DisplayName,
		Email: req.Email, Role: req.Role, Active: true,
	})
}

func (h *Handler) handleToggleUser(w http.ResponseWriter, r *http.Request) {
	userID, err := urlID(r, "userID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.store.ToggleUserActive(userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
