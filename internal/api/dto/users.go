package dto

type UpdateUserRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
	Role      *string `json:"role" validate:"omitempty,max=50"`
	IsActive  *bool   `json:"isActive"`
}

type UpdatePreferencesRequest struct {
	VisibleStats     []string               `json:"visibleStats"`
	Theme            *string                `json:"theme" validate:"omitempty,max=20"`
	Language         *string                `json:"language" validate:"omitempty,max=10"`
	OtherPreferences map[string]interface{} `json:"otherPreferences"`
}
