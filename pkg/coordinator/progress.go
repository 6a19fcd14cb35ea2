package coordinator

import (
	"context"
	"fmt"
	"sync"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress is the record polled by clients.
type Progress struct {
	Status         Status  `json:"status"`
	Progress       int     `json:"progress"`
	Message        string  `json:"message"`
	TotalQuestions int     `json:"total_questions"`
	Error          *string `json:"error,omitempty"`
}

// CanTransition encodes none -> PENDING -> PROCESSING -> COMPLETED | FAILED.
// FAILED is also reachable from PENDING; PROCESSING may repeat with new checkpoints.
func CanTransition(from, to Status) bool {
	switch from {
	case "":
		return to == StatusPending
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusProcessing || to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Job drives one execution's record through the state machine. A new admission starts
// a new Job, which overwrites whatever terminal record was left before.
type Job struct {
	c          *Coordinator
	resourceID string

	mu     sync.Mutex
	status Status
}

func (c *Coordinator) NewJob(resourceID string) *Job {
	return &Job{c: c, resourceID: resourceID}
}

// ResumeJob continues a job whose record is already at status, e.g. PENDING written at admission.
func (c *Coordinator) ResumeJob(resourceID string, status Status) *Job {
	return &Job{c: c, resourceID: resourceID, status: status}
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) advance(ctx context.Context, p Progress) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !CanTransition(j.status, p.Status) {
		return fmt.Errorf("invalid job transition %s -> %s for %s", displayStatus(j.status), p.Status, j.resourceID)
	}
	j.status = p.Status
	j.c.SetProgress(ctx, j.resourceID, p)
	return nil
}

func (j *Job) Pending(ctx context.Context, message string) error {
	return j.advance(ctx, Progress{Status: StatusPending, Progress: 0, Message: message})
}

func (j *Job) Processing(ctx context.Context, progress int, message string, total int) error {
	return j.advance(ctx, Progress{Status: StatusProcessing, Progress: progress, Message: message, TotalQuestions: total})
}

func (j *Job) Complete(ctx context.Context, message string, total int) error {
	return j.advance(ctx, Progress{Status: StatusCompleted, Progress: 100, Message: message, TotalQuestions: total})
}

// Fail records errText as "<label>: <errText>".
func (j *Job) Fail(ctx context.Context, message, label, errText string) error {
	e := label + ": " + errText
	return j.advance(ctx, Progress{Status: StatusFailed, Progress: 0, Message: message, Error: &e})
}

func displayStatus(s Status) string {
	if s == "" {
		return "NONE"
	}
	return string(s)
}
