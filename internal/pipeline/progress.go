package pipeline

import "fmt"

// ProgressStatus is the state of a step as seen by a progress subscriber.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressDegraded ProgressStatus = "degraded"
	ProgressSkipped  ProgressStatus = "skipped"
	ProgressFailed   ProgressStatus = "failed"
)

// ProgressEvent is emitted to the user during pipeline execution.
type ProgressEvent struct {
	Step    string
	Status  ProgressStatus
	Message string
}

// progressBuffer sizes the event channel. A run emits roughly two events
// per stage and branch, so 32 holds a full job with headroom.
const progressBuffer = 32

// ProgressReporter fans run events out to one subscriber. Emit never
// blocks the pipeline: a slow or absent consumer costs events, not
// throughput.
type ProgressReporter struct {
	events chan ProgressEvent
}

// NewProgressReporter creates a reporter ready to subscribe to.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		events: make(chan ProgressEvent, progressBuffer),
	}
}

// Emit publishes one event, dropping it when the buffer is full.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.events <- event:
	default:
	}
}

// Subscribe returns the event stream. It is closed by Close after the run
// finishes.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.events
}

// Close ends the event stream.
func (pr *ProgressReporter) Close() {
	close(pr.events)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", event.Step)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", event.Step)
	case ProgressComplete:
		return fmt.Sprintf("  ✓ %s complete", event.Step)
	case ProgressDegraded:
		return fmt.Sprintf("  ✓ %s degraded: %s", event.Step, event.Message)
	case ProgressSkipped:
		return fmt.Sprintf("  - %s skipped", event.Step)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Step, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Step)
	}
}
