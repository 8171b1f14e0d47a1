package handler

import (
	"net/http"

	"github.com/mtlprog/taskhub/internal/handler/dto"
)

// handleListUsers returns every user. Served on /users (admin) and /users/list (anyone,
// for assignment pickers).
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {array} domain.User
// @Failure 401 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/users [get]
// @Router /api/v1/users/list [get]
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.FindAll(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, users)
}

// handleCreateUser provisions a user and returns its token once. Admin only.
// @Summary Create a user
// @Description The token is returned only in this response.
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.CreateUserRequest true "User creation request"
// @Success 201 {object} dto.CreatedUserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/users [post]
func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Create(r.Context(), req.ToInput())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.CreatedUserResponse{User: user, Token: user.Token})
}

// handleGetProfile returns the authenticated user.
// @Summary Get own profile
// @Tags users
// @Produce json
// @Success 200 {object} domain.User
// @Failure 401 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/users/profile [get]
func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// handleUpdateProfile lets a user edit their own name and email.
// @Summary Update own profile
// @Description Name and email only. The role is ignored.
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.UpdateUserRequest true "Fields to change"
// @Success 200 {object} domain.User
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/users/profile [put]
func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.userService.Update(r.Context(), user.ID, req.ToInput(false))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// handleUpdateUser edits any user, including the role. Admin only.
// @Summary Update a user
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body dto.UpdateUserRequest true "Fields to change"
// @Success 200 {object} domain.User
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/users/{id} [put]
func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := extractID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.userService.Update(r.Context(), userID, req.ToInput(true))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// handleDeleteUser removes a user. Admin only.
// @Summary Delete a user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/users/{id} [delete]
func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := extractID(w, r)
	if !ok {
		return
	}

	if err := h.userService.Remove(r.Context(), userID); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.MessageResponse{Message: "User deleted successfully"})
}
