package api

import (
	"context"

	"github.com/go-kit/kit/endpoint"

	"github.com/trixelnet/contributor/station"
)

func statusEndpoint(svc station.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		status, err := svc.Status(ctx)
		if err != nil {
			return statusResponse{}, err
		}

		return statusResponse{Status: status}, nil
	}
}

func deregisterEndpoint(svc station.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		if err := svc.Deregister(ctx); err != nil {
			return deregisterResponse{}, err
		}

		return deregisterResponse{}, nil
	}
}
