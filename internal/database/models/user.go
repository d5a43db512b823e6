package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Preferences is stored as a JSON document on the user row.
type Preferences struct {
	VisibleStats     []string               `json:"visibleStats,omitempty"`
	Theme            string                 `json:"theme,omitempty"`
	Language         string                 `json:"language,omitempty"`
	OtherPreferences map[string]interface{} `json:"otherPreferences,omitempty"`
}

type User struct {
	Base
	SoftDelete
	Email          string                           `gorm:"size:254;uniqueIndex;not null" json:"email"`
	PasswordHash   string                           `gorm:"not null" json:"-"`
	FirstName      string                           `gorm:"size:100" json:"firstName"`
	LastName       string                           `gorm:"size:100" json:"lastName"`
	IsActive       bool                             `gorm:"not null" json:"isActive"`
	LastLoginAt    *time.Time                       `json:"lastLoginAt,omitempty"`
	OrganizationID uint                             `gorm:"not null;index" json:"organizationId"`
	RoleID         uint                             `gorm:"not null" json:"roleId"`
	Preferences    datatypes.JSONType[Preferences] `json:"-"`

	// Relationships
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Role         *Role         `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// FullName joins first and last name, falling back to the email.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// RoleName is empty when Role was not preloaded.
func (u User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}
