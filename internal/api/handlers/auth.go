package handlers

import (
	"errors"
	"net/http"

	"github.com/hugh/taskboard/internal/api/dto"
	"github.com/hugh/taskboard/internal/api/middleware"
	"github.com/hugh/taskboard/internal/auth"
	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/domain"
)

type AuthHandler struct {
	authService auth.Authenticator
	devTesting  bool
}

func NewAuthHandler(authService auth.Authenticator, devTesting bool) *AuthHandler {
	return &AuthHandler{authService: authService, devTesting: devTesting}
}

func toUserDTO(u *models.User) dto.UserDTO {
	out := dto.UserDTO{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           u.RoleName(),
		OrganizationID: u.OrganizationID,
	}
	if u.Organization != nil {
		out.OrganizationName = u.Organization.Name
	}
	return out
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Email:            req.Email,
		Password:         req.Password,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		OrganizationID:   req.OrganizationID,
		OrganizationName: req.OrganizationName,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "User with this email already exists"})
		case errors.Is(err, auth.ErrOrganizationNotFound):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Organization not found or inactive"})
		default:
			writeServiceError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, dto.AuthResponse{Token: resp.Token, User: toUserDTO(resp.User)})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid email or password"})
		case errors.Is(err, auth.ErrInactiveUser):
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Account is inactive"})
		default:
			writeServiceError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.AuthResponse{Token: resp.Token, User: toUserDTO(resp.User)})
}

func (h *AuthHandler) DevSettings(w http.ResponseWriter, r *http.Request) {
	resp := dto.DevSettingsResponse{Enabled: h.devTesting, Roles: []string{}}
	if h.devTesting {
		resp.Roles = domain.Roles
	}
	writeJSON(w, http.StatusOK, resp)
}

// SwitchRole lets a tester change their own role. Disabled unless dev
// testing is on.
func (h *AuthHandler) SwitchRole(w http.ResponseWriter, r *http.Request) {
	if !h.devTesting {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Role switching is disabled"})
		return
	}

	var req dto.SwitchRoleRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := h.authService.SwitchRole(r.Context(), middleware.GetUserID(r.Context()), req.Role)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "User not found"})
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuthResponse{Token: resp.Token, User: toUserDTO(resp.User)})
}
