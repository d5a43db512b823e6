package handlers

import (
	"net/http"
	"strconv"

	"github.com/hugh/taskboard/internal/api/dto"
	"github.com/hugh/taskboard/internal/api/middleware"
	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/todos"
)

type TaskHandler struct {
	service *todos.Service
}

func NewTaskHandler(service *todos.Service) *TaskHandler {
	return &TaskHandler{service: service}
}

type queryError struct {
	param string
}

func (e *queryError) Error() string {
	return "invalid value for " + e.param
}

func queryUint(r *http.Request, name string) (*uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, &queryError{param: name}
	}
	id := uint(v)
	return &id, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, &queryError{param: name}
	}
	return &v, nil
}

func parseListQuery(r *http.Request) (todos.ListQuery, error) {
	q := todos.ListQuery{
		Filter: r.URL.Query().Get("filter"),
		SortBy: r.URL.Query().Get("sortBy"),
	}

	var err error
	if q.IsCompleted, err = queryBool(r, "isCompleted"); err != nil {
		return q, err
	}
	if q.TodoStateID, err = queryUint(r, "todoStateId"); err != nil {
		return q, err
	}
	if q.AssignedToID, err = queryUint(r, "assignedToId"); err != nil {
		return q, err
	}
	if q.ProjectID, err = queryUint(r, "projectId"); err != nil {
		return q, err
	}
	unassigned, err := queryBool(r, "unassignedOnly")
	if err != nil {
		return q, err
	}
	q.UnassignedOnly = unassigned != nil && *unassigned
	return q, nil
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	tasks, err := h.service.List(r.Context(), middleware.Identity(r.Context()), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	task, err := h.service.Get(r.Context(), middleware.Identity(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func priorityOrDefault(p *models.Priority) models.Priority {
	if p == nil {
		return models.PriorityMedium
	}
	return *p
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTaskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := h.service.Create(r.Context(), middleware.Identity(r.Context()), todos.CreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     priorityOrDefault(req.Priority),
		DueDate:      req.DueDate,
		TodoStateID:  req.TodoStateID,
		AssignedToID: req.AssignedToID,
		ProjectID:    req.ProjectID,
		ParentTaskID: req.ParentTaskID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := h.service.Update(r.Context(), middleware.Identity(r.Context()), id, todos.UpdateInput{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     priorityOrDefault(req.Priority),
		DueDate:      req.DueDate,
		TodoStateID:  req.TodoStateID,
		AssignedToID: req.AssignedToID,
		ProjectID:    req.ProjectID,
		ParentTaskID: req.ParentTaskID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	task, err := h.service.ToggleStatus(r.Context(), middleware.Identity(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), middleware.Identity(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req dto.ReorderTasksRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.service.Reorder(r.Context(), middleware.Identity(r.Context()), req.TaskIDs); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), middleware.Identity(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *TaskHandler) AdvancedStats(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid value for days"})
			return
		}
		days = v
	}

	stats, err := h.service.AdvancedStats(r.Context(), middleware.Identity(r.Context()), days)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
