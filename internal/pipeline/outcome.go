package pipeline

import (
	"github.com/maxaizer/job-finder/internal/entities"
)

// Outcome is what a stage handler returns on success: either the next stage
// of the same item or a terminal status.
type Outcome struct {
	Status  entities.ItemStatus
	Next    entities.SubTask
	State   entities.PipelineState
	Message string
}

// Advance requeues the item at next with updates merged into its state.
func Advance(next entities.SubTask, updates entities.PipelineState) Outcome {
	return Outcome{Status: entities.StatusPending, Next: next, State: updates}
}

// Finish ends the item with a terminal status.
func Finish(status entities.ItemStatus, message string, updates entities.PipelineState) Outcome {
	return Outcome{Status: status, State: updates, Message: message}
}

func (o Outcome) advances() bool {
	return o.Status == entities.StatusPending
}
