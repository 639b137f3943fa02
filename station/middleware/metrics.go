package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/trixelnet/contributor/station"
)

var _ station.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     station.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc station.Service) station.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) RunCycle(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "run-cycle").Add(1)
		mm.latency.With("method", "run-cycle").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.RunCycle(ctx)
}

func (mm *metricsMiddleware) Status(ctx context.Context) (station.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "status").Add(1)
		mm.latency.With("method", "status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Status(ctx)
}

func (mm *metricsMiddleware) Deregister(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "deregister").Add(1)
		mm.latency.With("method", "deregister").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Deregister(ctx)
}
