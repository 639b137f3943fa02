package middleware

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/trixelnet/contributor/station"
)

var _ station.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    station.Service
}

func Tracing(tracer trace.Tracer, svc station.Service) station.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) RunCycle(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "run-cycle")
	defer span.End()

	return tm.svc.RunCycle(ctx)
}

func (tm *tracing) Status(ctx context.Context) (station.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "status")
	defer span.End()

	return tm.svc.Status(ctx)
}

func (tm *tracing) Deregister(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "deregister")
	defer span.End()

	return tm.svc.Deregister(ctx)
}
