package todos

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hugh/taskboard/internal/database/models"
	"github.com/hugh/taskboard/internal/domain"
)

const (
	DefaultStatsDays = 30
	MaxStatsDays     = 365

	unassignedKey  = "unassigned"
	unassignedName = "Unassigned"
	dateLayout     = "2006-01-02"
)

type Stats struct {
	Total        int64            `json:"total"`
	Completed    int64            `json:"completed"`
	Active       int64            `json:"active"`
	HighPriority int64            `json:"highPriority"`
	StateCounts  map[string]int64 `json:"stateCounts"`
}

type UserStats struct {
	UserID            *uint            `json:"userId"`
	UserName          string           `json:"userName"`
	UserEmail         string           `json:"userEmail"`
	TotalTasks        int64            `json:"totalTasks"`
	CompletedTasks    int64            `json:"completedTasks"`
	ActiveTasks       int64            `json:"activeTasks"`
	HighPriorityTasks int64            `json:"highPriorityTasks"`
	StateCounts       map[string]int64 `json:"stateCounts"`
}

type TrendPoint struct {
	Date           string           `json:"date"`
	TasksCreated   int64            `json:"tasksCreated"`
	TasksCompleted int64            `json:"tasksCompleted"`
	TotalTasks     int64            `json:"totalTasks"`
	StateCounts    map[string]int64 `json:"stateCounts"`
}

type AdvancedStats struct {
	Days    int                   `json:"days"`
	ByUser  map[string]*UserStats `json:"byUser"`
	ByState map[string]int64      `json:"byState"`
	Trends  []TrendPoint          `json:"trends"`
}

// snapshot is the organization's live tasks and states loaded once per call.
type snapshot struct {
	states map[uint]models.TodoState
	tasks  []models.Task
}

func (s *Service) snapshot(ctx context.Context, orgID uint, withAssignees bool) (*snapshot, error) {
	db := s.db.WithContext(ctx)

	var states []models.TodoState
	if err := db.Where("organization_id = ?", orgID).
		Order("sort_order ASC").Order("id ASC").
		Find(&states).Error; err != nil {
		return nil, fmt.Errorf("loading states: %w", err)
	}

	query := db.Where("organization_id = ?", orgID)
	if withAssignees {
		query = query.Preload("AssignedTo", unscoped)
	}
	var tasks []models.Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}

	snap := &snapshot{states: make(map[uint]models.TodoState, len(states)), tasks: tasks}
	for _, st := range states {
		snap.states[st.ID] = st
	}
	return snap, nil
}

func (sn *snapshot) zeroCounts() map[string]int64 {
	counts := make(map[string]int64, len(sn.states))
	for _, st := range sn.states {
		counts[st.DisplayName] = 0
	}
	return counts
}

func (sn *snapshot) isTerminal(t models.Task) bool {
	return sn.states[t.TodoStateID].IsTerminal
}

func (sn *snapshot) stateName(t models.Task) string {
	if st, ok := sn.states[t.TodoStateID]; ok {
		return st.DisplayName
	}
	return "Unknown"
}

// Stats counts every live task in the organization, subtasks included.
func (s *Service) Stats(ctx context.Context, id domain.Identity) (*Stats, error) {
	if id.OrganizationID == 0 {
		return nil, domain.ErrUnauthenticated
	}

	snap, err := s.snapshot(ctx, id.OrganizationID, false)
	if err != nil {
		return nil, err
	}

	stats := &Stats{StateCounts: snap.zeroCounts()}
	for _, t := range snap.tasks {
		stats.Total++
		stats.StateCounts[snap.stateName(t)]++
		if snap.isTerminal(t) {
			stats.Completed++
			continue
		}
		stats.Active++
		if t.Priority == models.PriorityHigh {
			stats.HighPriority++
		}
	}
	return stats, nil
}

// AdvancedStats breaks the organization's tasks down by assignee and state and
// builds a daily trend over the last days days.
func (s *Service) AdvancedStats(ctx context.Context, id domain.Identity, days int) (*AdvancedStats, error) {
	if id.OrganizationID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if days == 0 {
		days = DefaultStatsDays
	}
	if days < 1 || days > MaxStatsDays {
		return nil, domain.Validation("days must be between 1 and %d", MaxStatsDays)
	}

	snap, err := s.snapshot(ctx, id.OrganizationID, true)
	if err != nil {
		return nil, err
	}

	out := &AdvancedStats{
		Days:    days,
		ByUser:  make(map[string]*UserStats),
		ByState: snap.zeroCounts(),
	}

	for _, t := range snap.tasks {
		key := unassignedKey
		if t.AssignedToID != nil {
			key = formatID(*t.AssignedToID)
		}
		bucket := out.ByUser[key]
		if bucket == nil {
			bucket = &UserStats{UserName: unassignedName, StateCounts: snap.zeroCounts()}
			if t.AssignedToID != nil {
				uid := *t.AssignedToID
				bucket.UserID = &uid
				if t.AssignedTo != nil {
					bucket.UserName = t.AssignedTo.FullName()
					bucket.UserEmail = t.AssignedTo.Email
				}
			}
			out.ByUser[key] = bucket
		}

		name := snap.stateName(t)
		out.ByState[name]++
		bucket.TotalTasks++
		bucket.StateCounts[name]++
		if snap.isTerminal(t) {
			bucket.CompletedTasks++
		} else {
			bucket.ActiveTasks++
			if t.Priority == models.PriorityHigh {
				bucket.HighPriorityTasks++
			}
		}
	}

	today := truncateDay(s.now())
	start := today.AddDate(0, 0, -days)
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		next := day.AddDate(0, 0, 1)
		point := TrendPoint{Date: day.Format(dateLayout), StateCounts: snap.zeroCounts()}
		for _, t := range snap.tasks {
			created := t.CreatedAt.UTC()
			if !created.Before(day) && created.Before(next) {
				point.TasksCreated++
			}
			if t.CompletedAt != nil {
				done := t.CompletedAt.UTC()
				if !done.Before(day) && done.Before(next) {
					point.TasksCompleted++
				}
			}
			if created.Before(next) {
				point.TotalTasks++
				point.StateCounts[snap.stateName(t)]++
			}
		}
		out.Trends = append(out.Trends, point)
	}

	return out, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
