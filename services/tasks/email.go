package tasks

import (
	"encoding/json"
	"time"

	"transfera/models"

	"github.com/hibiken/asynq"
)

const TypeSendBookingEmail = "email:booking"

// NewBookingEmailTask wraps an email payload into a queue task. Delivery
// retries ride on the queue's own retry schedule, not on the booking flow.
func NewBookingEmailTask(payload models.EmailPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendBookingEmail, b)
	opts := []asynq.Option{
		asynq.MaxRetry(5),
		asynq.Timeout(30 * time.Second),
	}
	return task, opts, nil
}
