package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/trixelnet/contributor/station"
)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    station.Service
}

func Logging(logger *slog.Logger, svc station.Service) station.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) RunCycle(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Contribution cycle failed", args...)

			return
		}
		lm.logger.Info("Contribution cycle completed successfully", args...)
	}(time.Now())

	return lm.svc.RunCycle(ctx)
}

func (lm *loggingMiddleware) Status(ctx context.Context) (resp station.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get status failed", args...)

			return
		}
		lm.logger.Debug("Get status completed successfully", args...)
	}(time.Now())

	return lm.svc.Status(ctx)
}

func (lm *loggingMiddleware) Deregister(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Deregister station failed", args...)

			return
		}
		lm.logger.Info("Deregister station completed successfully", args...)
	}(time.Now())

	return lm.svc.Deregister(ctx)
}
