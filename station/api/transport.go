package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/trixelnet/contributor/pkg/api"
	"github.com/trixelnet/contributor/station"
)

// MakeHandler builds the station's diagnostic HTTP surface: the status
// snapshot, a liveness probe, registration removal and prometheus
// metrics. It is read-only apart from DELETE /registration.
func MakeHandler(svc station.Service, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(api.EncodeError),
	}

	mux.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "status").ServeHTTP)

	mux.Delete("/registration", otelhttp.NewHandler(kithttp.NewServer(
		deregisterEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "deregister").ServeHTTP)

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", api.ContentType)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:     "pass",
			InstanceID: instanceID,
		})
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return nil, nil
}
