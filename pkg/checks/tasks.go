package checks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// TypeCompletenessCheck is the asynq task type for completeness check runs
	TypeCompletenessCheck = "completeness:check"
	// Queue is the asynq queue name check tasks run on, before prefixing
	Queue = "checks"
)

// TaskPayload identifies the check a queued task should run. The run window
// is derived at execution time from the check's lookback, so the payload
// stays valid however long the task waits in the queue.
type TaskPayload struct {
	CheckName string `json:"check_name"`
}

// NewTask builds the asynq task for one check
func NewTask(check *Check) (*asynq.Task, error) {
	payload, err := json.Marshal(TaskPayload{CheckName: check.Name})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	return asynq.NewTask(TypeCompletenessCheck, payload), nil
}
