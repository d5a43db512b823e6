package models

const DefaultOrganizationSlug = "default"

type Organization struct {
	Base
	SoftDelete
	Name     string `gorm:"size:200;not null" json:"name"`
	Slug     string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	IsActive bool   `gorm:"not null" json:"isActive"`

	// Relationships
	Users      []User      `gorm:"foreignKey:OrganizationID" json:"-"`
	TodoStates []TodoState `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}

type Role struct {
	Base
	Name        string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string `gorm:"size:200" json:"description"`
}

func (Role) TableName() string {
	return "roles"
}
