package handler

import (
	"net/http"

	"github.com/mtlprog/taskhub/internal/handler/dto"
)

// handleListTasks lists tasks visible to the caller: all tasks for admins,
// assigned or created tasks for everyone else.
// @Summary List tasks
// @Description Admins see every task. Users see tasks assigned to or created by them.
// @Tags tasks
// @Produce json
// @Success 200 {array} domain.Task
// @Failure 401 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/tasks [get]
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	tasks, err := h.taskService.FindAll(r.Context(), user.ID, user.Role)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}

// handleCreateTask creates a new task. Admin only.
// @Summary Create a task
// @Description Creates a task assigned to a user with role "user". Status defaults to pending.
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body dto.CreateTaskRequest true "Task creation request"
// @Success 201 {object} domain.Task
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/tasks [post]
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}

	task, err := h.taskService.Create(r.Context(), req.ToInput(), user.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// handleGetTask returns one task with its assignee and creator.
// @Summary Get a task
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} domain.Task
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/tasks/{id} [get]
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	taskID, ok := extractID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.FindOne(r.Context(), taskID, user.ID, user.Role)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// handleUpdateTask applies a partial update. Admin only.
// @Summary Update a task
// @Description Partial update. Reassignment emits task.assigned, a status change emits task.status_changed.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body dto.UpdateTaskRequest true "Fields to change"
// @Success 200 {object} domain.Task
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/tasks/{id} [patch]
func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	taskID, ok := extractID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}

	task, err := h.taskService.Update(r.Context(), taskID, req.ToInput(), user.ID, user.Role)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// handleDeleteTask deletes a task. Admin only.
// @Summary Delete a task
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/tasks/{id} [delete]
func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	taskID, ok := extractID(w, r)
	if !ok {
		return
	}

	if err := h.taskService.Remove(r.Context(), taskID, user.ID, user.Role); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.MessageResponse{Message: "Task deleted successfully"})
}

// handleTaskHistory returns the audit trail of a task, newest first.
// @Summary Get task history
// @Description Audit trail of the task, newest first
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} dto.TaskHistoryResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/tasks/{id}/events [get]
func (h *Handler) handleTaskHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	taskID, ok := extractID(w, r)
	if !ok {
		return
	}

	events, err := h.taskService.History(r.Context(), taskID, user.ID, user.Role)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskHistory(taskID, events))
}
