package job

import (
	"context"

	"blogforge/src/core/blogflow"
)

// StepTopic is the queue that carries one message per pending job step
const StepTopic = "blog_job_steps"

// StepMessage asks a worker to run the next step of a job
type StepMessage struct {
	JobID string `json:"job_id"`
}

// StepRunner runs one step of a job
type StepRunner interface {
	Step(ctx context.Context, id string) (*blogflow.Job, error)
}
