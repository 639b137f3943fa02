// Package tsc is the HTTP client for the trixel sensor network services:
// the Trixel Lookup Service (TLS), which maps a trixel to its responsible
// measurement service, and the Trixel Measurement Service (TMS), which
// measurement stations register with and submit to.
package tsc

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgerrors "github.com/trixelnet/contributor/pkg/errors"
	"github.com/trixelnet/contributor/sensor"
	"github.com/trixelnet/contributor/trixel"
)

const CTJSON string = "application/json"

// RegisterRequest creates or updates a measurement station.
type RegisterRequest struct {
	Name         string                   `json:"name,omitempty"`
	TrixelID     trixel.ID                `json:"trixel_id"`
	KRequirement int                      `json:"k_requirement"`
	Types        []sensor.MeasurementType `json:"types"`
}

// RegisterResponse carries the server-issued station identity.
type RegisterResponse struct {
	StationID string `json:"station_id"`
	Token     string `json:"token"`
}

// SubmitRequest carries one contribution batch.
type SubmitRequest struct {
	StationID    string       `json:"station_id"`
	BatchID      string       `json:"batch_id"`
	Measurements sensor.Batch `json:"measurements"`
}

// SubmitResponse is the measurement service's verdict on a batch. The
// service may piggyback a depth directive or a privacy violation notice
// on an otherwise accepted submission.
type SubmitResponse struct {
	Accepted         bool `json:"accepted"`
	DepthDirective   *int `json:"depth_directive,omitempty"`
	PrivacyViolation bool `json:"privacy_violation,omitempty"`
}

type lookupResponse struct {
	Host string `json:"host"`
}

type Client interface {
	// LookupTMS asks the lookup service which measurement service is
	// responsible for the given trixel and returns its host.
	LookupTMS(ctx context.Context, id trixel.ID) (string, error)

	// Register creates a measurement station at the given TMS host.
	Register(ctx context.Context, tmsHost string, req RegisterRequest) (RegisterResponse, error)

	// UpdateStation updates an existing station's trixel and subscribed
	// measurement types after a reconfiguration or depth change.
	UpdateStation(ctx context.Context, tmsHost, stationID, token string, req RegisterRequest) error

	// Submit sends one contribution batch for the given trixel.
	Submit(ctx context.Context, tmsHost, token string, id trixel.ID, req SubmitRequest) (SubmitResponse, error)

	// DeleteStation removes the station from the network.
	DeleteStation(ctx context.Context, tmsHost, stationID, token string) error
}

type Config struct {
	LookupHost      string
	LookupHTTPS     bool
	TMSHTTPS        bool
	Timeout         time.Duration
	TLSVerification bool
}

type tscClient struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &tscClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (c *tscClient) lookupURL(path string) string {
	return scheme(c.cfg.LookupHTTPS) + c.cfg.LookupHost + path
}

func (c *tscClient) tmsURL(host, path string) string {
	return scheme(c.cfg.TMSHTTPS) + host + path
}

func scheme(https bool) string {
	if https {
		return "https://"
	}

	return "http://"
}

func (c *tscClient) LookupTMS(ctx context.Context, id trixel.ID) (string, error) {
	url := c.lookupURL(fmt.Sprintf("/trixel/%d/tms", id))

	body, err := c.processRequest(ctx, http.MethodGet, url, "", nil, http.StatusOK)
	if err != nil {
		return "", err
	}

	var resp lookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", goerrors.Join(pkgerrors.ErrInvalidData, err)
	}
	if resp.Host == "" {
		return "", fmt.Errorf("%w: lookup returned no measurement service host", pkgerrors.ErrInvalidData)
	}

	return resp.Host, nil
}

func (c *tscClient) Register(ctx context.Context, tmsHost string, req RegisterRequest) (RegisterResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return RegisterResponse{}, err
	}

	url := c.tmsURL(tmsHost, "/measurement_station")

	body, err := c.processRequest(ctx, http.MethodPost, url, "", data, http.StatusCreated)
	if err != nil {
		return RegisterResponse{}, err
	}

	var resp RegisterResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return RegisterResponse{}, goerrors.Join(pkgerrors.ErrInvalidData, err)
	}
	if resp.StationID == "" || resp.Token == "" {
		return RegisterResponse{}, fmt.Errorf("%w: registration response missing station id or token", pkgerrors.ErrInvalidData)
	}

	return resp, nil
}

func (c *tscClient) UpdateStation(ctx context.Context, tmsHost, stationID, token string, req RegisterRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	url := c.tmsURL(tmsHost, "/measurement_station/"+stationID)

	_, err = c.processRequest(ctx, http.MethodPut, url, token, data, http.StatusOK)

	return err
}

func (c *tscClient) Submit(ctx context.Context, tmsHost, token string, id trixel.ID, req SubmitRequest) (SubmitResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return SubmitResponse{}, err
	}

	url := c.tmsURL(tmsHost, fmt.Sprintf("/trixel/%d/update", id))

	body, err := c.processRequest(ctx, http.MethodPost, url, token, data, http.StatusOK)
	if err != nil {
		return SubmitResponse{}, err
	}

	var resp SubmitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return SubmitResponse{}, goerrors.Join(pkgerrors.ErrInvalidData, err)
	}

	return resp, nil
}

func (c *tscClient) DeleteStation(ctx context.Context, tmsHost, stationID, token string) error {
	url := c.tmsURL(tmsHost, "/measurement_station/"+stationID)

	_, err := c.processRequest(ctx, http.MethodDelete, url, token, nil, http.StatusNoContent)

	return err
}

func (c *tscClient) processRequest(ctx context.Context, method, reqURL, token string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)
	if token != "" {
		req.Header.Add("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return []byte{}, goerrors.Join(pkgerrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, goerrors.Join(pkgerrors.ErrNetwork, err)
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, statusError(resp.StatusCode)
	}

	return body, nil
}

// statusError maps service responses onto the station's error kinds so
// raw transport detail never leaks past this boundary.
func statusError(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusGone:
		return pkgerrors.ErrRegistrationExpired
	case code == http.StatusNotFound:
		return pkgerrors.ErrNotFound
	case code >= 400 && code < 500:
		return fmt.Errorf("%w: status %d", pkgerrors.ErrRejected, code)
	default:
		return fmt.Errorf("%w: status %d", pkgerrors.ErrNetwork, code)
	}
}
