package models

import "time"

type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	}
	return "Unknown"
}

type Task struct {
	Base
	SoftDelete
	OrganizationID uint       `gorm:"not null;index" json:"organizationId"`
	Title          string     `gorm:"size:200;not null" json:"title"`
	Description    string     `gorm:"size:1000" json:"description,omitempty"`
	Priority       Priority   `gorm:"not null;default:0" json:"priority"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	Order          *int       `gorm:"column:sort_order" json:"order,omitempty"` // nil sorts last

	TodoStateID         uint  `gorm:"not null;index" json:"todoStateId"`
	PreviousTodoStateID *uint `json:"-"`
	CreatedByID         uint  `gorm:"not null" json:"createdById"`
	UpdatedByID         *uint `json:"updatedById,omitempty"`
	AssignedToID        *uint `gorm:"index" json:"assignedToId,omitempty"`
	ProjectID           *uint `gorm:"index" json:"projectId,omitempty"`
	ParentTaskID        *uint `gorm:"index" json:"parentTaskId,omitempty"`

	// Set when the due date reminder went out, cleared when the due date changes
	DueReminderSentAt *time.Time `json:"-"`

	// Relationships
	TodoState  *TodoState `gorm:"foreignKey:TodoStateID" json:"-"`
	AssignedTo *User      `gorm:"foreignKey:AssignedToID" json:"-"`
	CreatedBy  *User      `gorm:"foreignKey:CreatedByID" json:"-"`
	UpdatedBy  *User      `gorm:"foreignKey:UpdatedByID" json:"-"`
	Project    *Project   `gorm:"foreignKey:ProjectID" json:"-"`
	ParentTask *Task      `gorm:"foreignKey:ParentTaskID" json:"-"`
	Subtasks   []Task     `gorm:"foreignKey:ParentTaskID" json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}
