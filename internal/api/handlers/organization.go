package handlers

import (
	"net/http"

	"github.com/hugh/taskboard/internal/api/dto"
	"github.com/hugh/taskboard/internal/api/middleware"
	"github.com/hugh/taskboard/internal/organizations"
)

type OrganizationHandler struct {
	service *organizations.Service
}

func NewOrganizationHandler(service *organizations.Service) *OrganizationHandler {
	return &OrganizationHandler{service: service}
}

func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.Get(r.Context(), middleware.Identity(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateOrganizationRequest
	if !decode(w, r, &req) {
		return
	}

	org, err := h.service.Update(r.Context(), middleware.Identity(r.Context()), organizations.UpdateInput{
		Name:     req.Name,
		Slug:     req.Slug,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}
