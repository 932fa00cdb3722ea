package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"blogforge/src/core/blogflow"
)

// StepDispatcher drives jobs through the message queue: every processed step
// publishes the next one until the job is completed or failed.
type StepDispatcher struct {
	publisher message.Publisher
	stepper   StepRunner
	logger    watermill.LoggerAdapter
	topic     string
}

type Option func(d *StepDispatcher)

// WithTopic overrides StepTopic
func WithTopic(topic string) Option {
	return func(d *StepDispatcher) {
		d.topic = topic
	}
}

func NewStepDispatcher(
	publisher message.Publisher,
	stepper StepRunner,
	logger watermill.LoggerAdapter,
	opts ...Option,
) *StepDispatcher {
	d := &StepDispatcher{
		publisher: publisher,
		stepper:   stepper,
		logger:    logger,
		topic:     StepTopic,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Topic returns the topic step messages are published on
func (d *StepDispatcher) Topic() string {
	return d.topic
}

// Dispatch publishes a step message for the job
func (d *StepDispatcher) Dispatch(ctx context.Context, jobID string) error {
	payload, err := json.Marshal(StepMessage{JobID: jobID})
	if err != nil {
		return fmt.Errorf("failed to marshal step message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := d.publisher.Publish(d.topic, msg); err != nil {
		return fmt.Errorf("failed to publish step message: %w", err)
	}
	return nil
}

// ProcessStepMessage runs one step for the job in the message. Returning an error
// nacks the message so the retry middleware can redeliver it.
func (d *StepDispatcher) ProcessStepMessage(msg *message.Message) error {
	var stepMsg StepMessage
	if err := json.Unmarshal(msg.Payload, &stepMsg); err != nil {
		// A message that cannot be decoded will never succeed.
		d.logger.Error("Dropping malformed step message", err, watermill.LogFields{
			"message_uuid": msg.UUID,
		})
		return nil
	}

	ctx := msg.Context()
	job, err := d.stepper.Step(ctx, stepMsg.JobID)
	if errors.Is(err, blogflow.ErrJobNotFound) {
		d.logger.Info("Dropping step for unknown job", watermill.LogFields{"job_id": stepMsg.JobID})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to step job %s: %w", stepMsg.JobID, err)
	}

	d.logger.Debug("Step processed", watermill.LogFields{
		"job_id":   job.ID,
		"status":   job.Status,
		"progress": job.Progress,
	})

	if job.Status.Terminal() {
		d.logger.Info("Job finished", watermill.LogFields{
			"job_id": job.ID,
			"status": job.Status,
			"error":  job.Error,
		})
		return nil
	}
	return d.Dispatch(context.WithoutCancel(ctx), job.ID)
}

// Register adds the step handler to a router
func (d *StepDispatcher) Register(router *message.Router, subscriber message.Subscriber) {
	router.AddNoPublisherHandler(
		"blog_job_step_processor",
		d.topic,
		subscriber,
		d.ProcessStepMessage,
	)
}
