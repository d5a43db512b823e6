// Package states manages an organization's workflow states.
package states

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/domain"
	"gorm.io/gorm"
)

// the state whose name marks completion in seeded workflows
const legacyTerminalName = "done"

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type StateView struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Order       int       `json:"order"`
	IsDefault   bool      `json:"isDefault"`
	IsTerminal  bool      `json:"isTerminal"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon"`
	TaskCount   int64     `json:"taskCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toView(s models.TodoState, taskCount int64) StateView {
	return StateView{
		ID:          s.ID,
		Name:        s.Name,
		DisplayName: s.DisplayName,
		Order:       s.Order,
		IsDefault:   s.IsDefault,
		IsTerminal:  s.IsTerminal,
		Color:       s.Color,
		Icon:        s.Icon,
		TaskCount:   taskCount,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

type CreateInput struct {
	Name        string
	DisplayName string
	Order       int
	IsDefault   bool
	IsTerminal  *bool // inferred from the name when nil
	Color       string
	Icon        string
}

// UpdateInput applies only the non-nil fields.
type UpdateInput struct {
	Name        *string
	DisplayName *string
	Order       *int
	IsDefault   *bool
	IsTerminal  *bool
	Color       *string
	Icon        *string
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func requireAdmin(id domain.Identity) error {
	if err := id.Require(); err != nil {
		return err
	}
	if !id.IsAdmin() {
		return domain.Forbidden("only administrators can manage todo states")
	}
	return nil
}

// taskCounts maps state id to the number of live tasks in it.
func (s *Service) taskCounts(db *gorm.DB, orgID uint) (map[uint]int64, error) {
	var rows []struct {
		TodoStateID uint
		Count       int64
	}
	if err := db.Model(&models.Task{}).
		Select("todo_state_id, COUNT(*) AS count").
		Where("organization_id = ?", orgID).
		Group("todo_state_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("counting tasks per state: %w", err)
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.TodoStateID] = r.Count
	}
	return counts, nil
}

func (s *Service) List(ctx context.Context, id domain.Identity) ([]StateView, error) {
	if id.OrganizationID == 0 {
		return nil, domain.ErrUnauthenticated
	}

	db := s.db.WithContext(ctx)
	var states []models.TodoState
	if err := db.Where("organization_id = ?", id.OrganizationID).
		Order("sort_order ASC").Order("name ASC").
		Find(&states).Error; err != nil {
		return nil, fmt.Errorf("listing todo states: %w", err)
	}

	counts, err := s.taskCounts(db, id.OrganizationID)
	if err != nil {
		return nil, err
	}

	views := make([]StateView, len(states))
	for i, st := range states {
		views[i] = toView(st, counts[st.ID])
	}
	return views, nil
}

func (s *Service) find(db *gorm.DB, orgID, stateID uint) (*models.TodoState, error) {
	var state models.TodoState
	if err := db.Where("id = ? AND organization_id = ?", stateID, orgID).First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("todo state %d not found", stateID)
		}
		return nil, fmt.Errorf("loading todo state: %w", err)
	}
	return &state, nil
}

func (s *Service) view(db *gorm.DB, state *models.TodoState) (*StateView, error) {
	var count int64
	if err := db.Model(&models.Task{}).Where("todo_state_id = ?", state.ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("counting tasks: %w", err)
	}
	v := toView(*state, count)
	return &v, nil
}

func (s *Service) Get(ctx context.Context, id domain.Identity, stateID uint) (*StateView, error) {
	if id.OrganizationID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	db := s.db.WithContext(ctx)
	state, err := s.find(db, id.OrganizationID, stateID)
	if err != nil {
		return nil, err
	}
	return s.view(db, state)
}

func (s *Service) checkNameFree(db *gorm.DB, orgID uint, name string, exceptID uint) error {
	var count int64
	q := db.Model(&models.TodoState{}).Where("organization_id = ? AND LOWER(name) = ?", orgID, name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("checking state name: %w", err)
	}
	if count > 0 {
		return domain.Conflict("a todo state named '%s' already exists", name)
	}
	return nil
}

// clearDefault unsets the default flag on every other state of the organization.
func clearDefault(tx *gorm.DB, orgID, keepID uint) error {
	q := tx.Model(&models.TodoState{}).Where("organization_id = ? AND is_default = ?", orgID, true)
	if keepID != 0 {
		q = q.Where("id <> ?", keepID)
	}
	if err := q.Update("is_default", false).Error; err != nil {
		return fmt.Errorf("clearing default state: %w", err)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, id domain.Identity, in CreateInput) (*StateView, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}

	name := normalizeName(in.Name)
	if name == "" || strings.TrimSpace(in.DisplayName) == "" {
		return nil, domain.Validation("name and display name are required")
	}
	terminal := name == legacyTerminalName
	if in.IsTerminal != nil {
		terminal = *in.IsTerminal
	}

	state := models.TodoState{
		OrganizationID: id.OrganizationID,
		Name:           name,
		DisplayName:    strings.TrimSpace(in.DisplayName),
		Order:          in.Order,
		IsDefault:      in.IsDefault,
		IsTerminal:     terminal,
		Color:          in.Color,
		Icon:           in.Icon,
	}

	db := s.db.WithContext(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := s.checkNameFree(tx, id.OrganizationID, name, 0); err != nil {
			return err
		}
		if state.IsDefault {
			if err := clearDefault(tx, id.OrganizationID, 0); err != nil {
				return err
			}
		}
		if err := tx.Create(&state).Error; err != nil {
			return fmt.Errorf("creating todo state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.view(db, &state)
}

func (s *Service) Update(ctx context.Context, id domain.Identity, stateID uint, in UpdateInput) (*StateView, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var state *models.TodoState
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		state, err = s.find(tx, id.OrganizationID, stateID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name := normalizeName(*in.Name)
			if name == "" {
				return domain.Validation("name cannot be empty")
			}
			if name != state.Name {
				if err := s.checkNameFree(tx, id.OrganizationID, name, state.ID); err != nil {
					return err
				}
				state.Name = name
			}
		}
		if in.DisplayName != nil {
			if strings.TrimSpace(*in.DisplayName) == "" {
				return domain.Validation("display name cannot be empty")
			}
			state.DisplayName = strings.TrimSpace(*in.DisplayName)
		}
		if in.Order != nil {
			state.Order = *in.Order
		}
		if in.IsTerminal != nil {
			state.IsTerminal = *in.IsTerminal
		}
		if in.Color != nil {
			state.Color = *in.Color
		}
		if in.Icon != nil {
			state.Icon = *in.Icon
		}
		if in.IsDefault != nil {
			switch {
			case *in.IsDefault && !state.IsDefault:
				if err := clearDefault(tx, id.OrganizationID, state.ID); err != nil {
					return err
				}
				state.IsDefault = true
			case !*in.IsDefault && state.IsDefault:
				return domain.Validation("mark another state as default instead of unsetting the current one")
			}
		}

		if err := tx.Save(state).Error; err != nil {
			return fmt.Errorf("saving todo state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.view(db, state)
}

// Delete soft deletes a state that no live task references.
func (s *Service) Delete(ctx context.Context, id domain.Identity, stateID uint) error {
	if err := requireAdmin(id); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	state, err := s.find(db, id.OrganizationID, stateID)
	if err != nil {
		return err
	}

	var inUse int64
	if err := db.Model(&models.Task{}).Where("todo_state_id = ?", state.ID).Count(&inUse).Error; err != nil {
		return fmt.Errorf("counting tasks: %w", err)
	}
	if inUse > 0 {
		return domain.Conflict(
			"Cannot delete todo state '%s' because it is being used by %d task(s). Please reassign those tasks first.",
			state.DisplayName, inUse,
		)
	}
	if state.IsDefault {
		return domain.Conflict("Cannot delete the default todo state. Mark another state as default first.")
	}

	if err := db.Model(state).Updates(models.SoftDeleteUpdates(id.UserID, time.Now().UTC())).Error; err != nil {
		return fmt.Errorf("deleting todo state: %w", err)
	}
	return nil
}

// Reorder sets each state's order to its index in stateIDs, all or nothing.
func (s *Service) Reorder(ctx context.Context, id domain.Identity, stateIDs []uint) error {
	if err := requireAdmin(id); err != nil {
		return err
	}

	seen := make(map[uint]struct{}, len(stateIDs))
	for _, sid := range stateIDs {
		if _, dup := seen[sid]; dup {
			return domain.Validation("state %d appears more than once", sid)
		}
		seen[sid] = struct{}{}
	}
	if len(stateIDs) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.TodoState{}).
			Where("organization_id = ? AND id IN ?", id.OrganizationID, stateIDs).
			Count(&count).Error; err != nil {
			return fmt.Errorf("loading states: %w", err)
		}
		if int(count) != len(stateIDs) {
			return domain.InvalidReference("one or more todo states do not exist in this organization")
		}

		for pos, sid := range stateIDs {
			if err := tx.Model(&models.TodoState{}).Where("id = ?", sid).
				Update("sort_order", pos).Error; err != nil {
				return fmt.Errorf("reordering state %d: %w", sid, err)
			}
		}
		return nil
	})
}
