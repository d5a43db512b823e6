package dto

type RegisterRequest struct {
	Email            string `json:"email" validate:"required,email,max=255"`
	Password         string `json:"password" validate:"required,min=6,max=100"`
	FirstName        string `json:"firstName" validate:"required,max=100"`
	LastName         string `json:"lastName" validate:"required,max=100"`
	OrganizationID   *uint  `json:"organizationId,omitempty"`
	OrganizationName string `json:"organizationName,omitempty" validate:"omitempty,max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SwitchRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type UserDTO struct {
	ID               uint   `json:"id"`
	Email            string `json:"email"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Role             string `json:"role"`
	OrganizationID   uint   `json:"organizationId"`
	OrganizationName string `json:"organizationName,omitempty"`
}

type DevSettingsResponse struct {
	Enabled bool     `json:"enabled"`
	Roles   []string `json:"roles"`
}
