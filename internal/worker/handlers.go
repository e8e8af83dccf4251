package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/service"
	"github.com/noah-isme/sma-bulletin-api/pkg/jobs"
)

type signageRefresher interface {
	RefreshSignage(ctx context.Context) (*models.Feed, error)
}

type broadcaster interface {
	Broadcast(ctx context.Context, b models.NotificationBroadcast) (int, error)
}

type jobRecorder interface {
	RecordJob(jobType string, err error)
}

// Register binds the bulletin job handlers onto mux.
func Register(mux *jobs.Mux, feed signageRefresher, notifications broadcaster, metrics jobRecorder, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux.Handle(service.JobSignageRefresh, recorded(service.JobSignageRefresh, metrics, func(ctx context.Context, job jobs.Job) error {
		result, err := feed.RefreshSignage(ctx)
		if err != nil {
			return err
		}
		logger.Debug("signage snapshot refreshed",
			zap.String("day", result.Day),
			zap.Any("trigger", job.Payload),
			zap.Int("skipped_items", result.SkippedItems),
		)
		return nil
	}))
	mux.Handle(service.JobNotificationBroadcast, recorded(service.JobNotificationBroadcast, metrics, func(ctx context.Context, job jobs.Job) error {
		var b models.NotificationBroadcast
		switch payload := job.Payload.(type) {
		case models.NotificationBroadcast:
			b = payload
		case *models.NotificationBroadcast:
			if payload == nil {
				return fmt.Errorf("%s: nil payload", job.Type)
			}
			b = *payload
		default:
			return fmt.Errorf("%s: unexpected payload %T", job.Type, job.Payload)
		}
		sent, err := notifications.Broadcast(ctx, b)
		if err != nil {
			return err
		}
		logger.Info("notification broadcast delivered", zap.String("title", b.Title), zap.Int("recipients", sent))
		return nil
	}))
}

func recorded(jobType string, metrics jobRecorder, h jobs.Handler) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		err := h(ctx, job)
		if metrics != nil {
			metrics.RecordJob(jobType, err)
		}
		return err
	}
}
