package models

type Project struct {
	Base
	SoftDelete
	OrganizationID uint   `gorm:"not null;index" json:"organizationId"`
	Name           string `gorm:"size:200;not null" json:"name"`
	Description    string `gorm:"size:1000" json:"description,omitempty"`
	CreatedByID    uint   `gorm:"not null" json:"createdById"`
	UpdatedByID    *uint  `json:"updatedById,omitempty"`

	// Relationships
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	CreatedBy    *User         `gorm:"foreignKey:CreatedByID" json:"-"`
	UpdatedBy    *User         `gorm:"foreignKey:UpdatedByID" json:"-"`
}

func (Project) TableName() string {
	return "projects"
}
