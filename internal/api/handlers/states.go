package handlers

import (
	"net/http"

	"github.com/hugh/taskboard/internal/api/dto"
	"github.com/hugh/taskboard/internal/api/middleware"
	"github.com/hugh/taskboard/internal/states"
)

type TodoStateHandler struct {
	service *states.Service
}

func NewTodoStateHandler(service *states.Service) *TodoStateHandler {
	return &TodoStateHandler{service: service}
}

func (h *TodoStateHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), middleware.Identity(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *TodoStateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	state, err := h.service.Get(r.Context(), middleware.Identity(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *TodoStateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTodoStateRequest
	if !decode(w, r, &req) {
		return
	}

	state, err := h.service.Create(r.Context(), middleware.Identity(r.Context()), states.CreateInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Order:       req.Order,
		IsDefault:   req.IsDefault,
		IsTerminal:  req.IsTerminal,
		Color:       req.Color,
		Icon:        req.Icon,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

func (h *TodoStateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTodoStateRequest
	if !decode(w, r, &req) {
		return
	}

	state, err := h.service.Update(r.Context(), middleware.Identity(r.Context()), id, states.UpdateInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Order:       req.Order,
		IsDefault:   req.IsDefault,
		IsTerminal:  req.IsTerminal,
		Color:       req.Color,
		Icon:        req.Icon,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *TodoStateHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *TodoStateHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req dto.ReorderStatesRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.service.Reorder(r.Context(), middleware.Identity(r.Context()), req.StateIDs); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
