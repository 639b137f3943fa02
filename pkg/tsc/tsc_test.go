package tsc_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trixelnet/contributor/pkg/errors"
	"github.com/trixelnet/contributor/pkg/tsc"
	"github.com/trixelnet/contributor/sensor"
	"github.com/trixelnet/contributor/trixel"
)

const testToken = "secret-token"

var testTrixel = trixel.ID(0x8F2)

func host(ts *httptest.Server) string {
	return strings.TrimPrefix(ts.URL, "http://")
}

func newClient(lookupHost string) tsc.Client {
	return tsc.NewClient(tsc.Config{
		LookupHost:  lookupHost,
		LookupHTTPS: false,
		TMSHTTPS:    false,
		Timeout:     5 * time.Second,
	})
}

func TestLookupTMS(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, fmt.Sprintf("/trixel/%d/tms", testTrixel), r.URL.Path)

		w.Header().Set("Content-Type", tsc.CTJSON)
		_ = json.NewEncoder(w).Encode(map[string]string{"host": "tms.example.org"})
	}))
	defer ts.Close()

	got, err := newClient(host(ts)).LookupTMS(context.Background(), testTrixel)
	require.NoError(t, err)
	assert.Equal(t, "tms.example.org", got)
}

func TestLookupTMSEmptyHost(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"host": ""})
	}))
	defer ts.Close()

	_, err := newClient(host(ts)).LookupTMS(context.Background(), testTrixel)
	assert.ErrorIs(t, err, errors.ErrInvalidData)
}

func TestRegister(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/measurement_station", r.URL.Path)

		var req tsc.RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, testTrixel, req.TrixelID)
		assert.Equal(t, 3, req.KRequirement)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(tsc.RegisterResponse{StationID: "station-1", Token: testToken})
	}))
	defer ts.Close()

	resp, err := newClient("").Register(context.Background(), host(ts), tsc.RegisterRequest{
		Name:         "test-station",
		TrixelID:     testTrixel,
		KRequirement: 3,
		Types:        []sensor.MeasurementType{sensor.AmbientTemperature},
	})
	require.NoError(t, err)
	assert.Equal(t, "station-1", resp.StationID)
	assert.Equal(t, testToken, resp.Token)
}

func TestRegisterMissingToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(tsc.RegisterResponse{StationID: "station-1"})
	}))
	defer ts.Close()

	_, err := newClient("").Register(context.Background(), host(ts), tsc.RegisterRequest{TrixelID: testTrixel})
	assert.ErrorIs(t, err, errors.ErrInvalidData)
}

func TestUpdateStation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/measurement_station/station-1", r.URL.Path)
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))

		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	err := newClient("").UpdateStation(context.Background(), host(ts), "station-1", testToken, tsc.RegisterRequest{TrixelID: testTrixel})
	require.NoError(t, err)
}

func TestSubmit(t *testing.T) {
	directive := 9
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, fmt.Sprintf("/trixel/%d/update", testTrixel), r.URL.Path)
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))

		var req tsc.SubmitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "station-1", req.StationID)
		assert.NotEmpty(t, req.BatchID)

		_ = json.NewEncoder(w).Encode(tsc.SubmitResponse{Accepted: true, DepthDirective: &directive})
	}))
	defer ts.Close()

	resp, err := newClient("").Submit(context.Background(), host(ts), testToken, testTrixel, tsc.SubmitRequest{
		StationID: "station-1",
		BatchID:   "batch-1",
		Measurements: sensor.Batch{
			sensor.AmbientTemperature: {Value: 21, Unit: sensor.UnitCelsius, SensorCount: 2},
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
	require.NotNil(t, resp.DepthDirective)
	assert.Equal(t, 9, *resp.DepthDirective)
}

func TestDeleteStation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/measurement_station/station-1", r.URL.Path)

		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	err := newClient("").DeleteStation(context.Background(), host(ts), "station-1", testToken)
	require.NoError(t, err)
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		expectedError error
	}{
		{"unauthorized means expired", http.StatusUnauthorized, errors.ErrRegistrationExpired},
		{"gone means expired", http.StatusGone, errors.ErrRegistrationExpired},
		{"not found", http.StatusNotFound, errors.ErrNotFound},
		{"bad request means rejected", http.StatusBadRequest, errors.ErrRejected},
		{"unprocessable means rejected", http.StatusUnprocessableEntity, errors.ErrRejected},
		{"server error means network", http.StatusInternalServerError, errors.ErrNetwork},
		{"bad gateway means network", http.StatusBadGateway, errors.ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer ts.Close()

			_, err := newClient("").Submit(context.Background(), host(ts), testToken, testTrixel, tsc.SubmitRequest{})
			assert.ErrorIs(t, err, tt.expectedError)
		})
	}
}

func TestUnreachableServer(t *testing.T) {
	_, err := newClient("").Submit(context.Background(), "127.0.0.1:1", testToken, testTrixel, tsc.SubmitRequest{})
	assert.ErrorIs(t, err, errors.ErrNetwork)
}
