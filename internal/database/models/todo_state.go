package models

type TodoState struct {
	Base
	SoftDelete
	OrganizationID uint   `gorm:"not null;index" json:"organizationId"`
	Name           string `gorm:"size:50;not null" json:"name"` // lowercase, unique per organization
	DisplayName    string `gorm:"size:100;not null" json:"displayName"`
	Order          int    `gorm:"column:sort_order;not null;default:0" json:"order"`
	IsDefault      bool   `gorm:"not null;default:false" json:"isDefault"`
	IsTerminal     bool   `gorm:"not null;default:false" json:"isTerminal"`
	Color          string `gorm:"size:7" json:"color,omitempty"`
	Icon           string `gorm:"size:50" json:"icon,omitempty"`
}

func (TodoState) TableName() string {
	return "todo_states"
}
