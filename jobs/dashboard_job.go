package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/maderia/maderia/internal/dashboard"
)

// DashboardWarmJob precomputes the trailing twelve month report so the
// first admin request of the day hits a warm cache.
type DashboardWarmJob struct {
	service *dashboard.Service
	logger  *slog.Logger
}

func NewDashboardWarmJob(service *dashboard.Service, logger *slog.Logger) *DashboardWarmJob {
	return &DashboardWarmJob{service: service, logger: logger}
}

// Handle drops stale cached reports and recomputes the default range.
func (j *DashboardWarmJob) Handle(ctx context.Context, _ *asynq.Task) error {
	resp, err := j.service.Refresh(ctx)
	if err != nil {
		j.logger.Error("dashboard warmup failed", "error", err)
		return err
	}
	if resp.Report != nil {
		j.logger.Info("dashboard warmed",
			"from", resp.Report.From, "to", resp.Report.To,
			"revenue", resp.Report.Summary.TotalRevenue)
	}
	return nil
}
