package dto

type CreateTodoStateRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	DisplayName string `json:"displayName" validate:"required,max=100"`
	Order       int    `json:"order" validate:"gte=0"`
	IsDefault   bool   `json:"isDefault"`
	IsTerminal  *bool  `json:"isTerminal"`
	Color       string `json:"color" validate:"hexcolor_or_empty"`
	Icon        string `json:"icon" validate:"max=50"`
}

type UpdateTodoStateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=50"`
	DisplayName *string `json:"displayName" validate:"omitempty,min=1,max=100"`
	Order       *int    `json:"order" validate:"omitempty,gte=0"`
	IsDefault   *bool   `json:"isDefault"`
	IsTerminal  *bool   `json:"isTerminal"`
	Color       *string `json:"color" validate:"omitempty,hexcolor_or_empty"`
	Icon        *string `json:"icon" validate:"omitempty,max=50"`
}
