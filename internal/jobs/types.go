package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/taskboard/pkg/queue"
)

// Task type names
const (
	TypeDueReminderScan = "reminders:due_scan"
)

// DueReminderScanPayload limits a scan to one organization. A zero
// OrganizationID scans every organization.
type DueReminderScanPayload struct {
	OrganizationID uint `json:"organization_id,omitempty"`
	RequestedBy    uint `json:"requested_by,omitempty"`
}

func NewDueReminderScanTask(payload DueReminderScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDueReminderScan, data), nil
}

// Enqueuer puts jobs on the queue from the API process.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueDueReminderScan queues a scan and returns the queued task id.
func (e *Enqueuer) EnqueueDueReminderScan(ctx context.Context, payload DueReminderScanPayload) (string, error) {
	task, err := NewDueReminderScanTask(payload)
	if err != nil {
		return "", fmt.Errorf("building reminder task: %w", err)
	}
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(queue.QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		return "", fmt.Errorf("enqueueing reminder scan: %w", err)
	}
	return info.ID, nil
}
