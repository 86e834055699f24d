package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// EmailDeliverer performs the actual delivery for queued mail tasks.
type EmailDeliverer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SendEmailJob drains mail:send tasks through an SMTP-backed deliverer.
type SendEmailJob struct {
	deliverer EmailDeliverer
	logger    *slog.Logger
}

func NewSendEmailJob(deliverer EmailDeliverer, logger *slog.Logger) *SendEmailJob {
	return &SendEmailJob{deliverer: deliverer, logger: logger}
}

// Handle decodes and delivers one queued email.
func (j *SendEmailJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode send-email payload: %w", err)
	}
	if err := j.deliverer.Send(ctx, payload.To, payload.Subject, payload.HTML); err != nil {
		j.logger.Error("email delivery failed", "to", payload.To, "error", err)
		return err
	}
	j.logger.Info("email delivered", "to", payload.To, "subject", payload.Subject)
	return nil
}
