package dto

type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type UpdateOrganizationRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Slug     *string `json:"slug" validate:"omitempty,max=100,slug"`
	IsActive *bool   `json:"isActive"`
}
