// Package sdk is the HTTP client for a running station's diagnostic API,
// used by the CLI.
package sdk

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/trixelnet/contributor/station"
)

const CTJSON string = "application/json"

type SDK interface {
	// Status returns the station's diagnostic snapshot.
	//
	// example:
	//  status, _ := sdk.Status()
	//  fmt.Println(status)
	Status() (station.Status, error)

	// Deregister removes the station from the trixel network.
	//
	// example:
	//  _ = sdk.Deregister()
	Deregister() error
}

type stationSDK struct {
	stationURL string
	client     *http.Client
}

type Config struct {
	StationURL      string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &stationSDK{
		stationURL: cfg.StationURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *stationSDK) Status() (station.Status, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.stationURL+"/status", http.StatusOK)
	if err != nil {
		return station.Status{}, err
	}

	var status station.Status
	if err := json.Unmarshal(body, &status); err != nil {
		return station.Status{}, err
	}

	return status, nil
}

func (sdk *stationSDK) Deregister() error {
	_, err := sdk.processRequest(http.MethodDelete, sdk.stationURL+"/registration", http.StatusNoContent)

	return err
}

func (sdk *stationSDK) processRequest(method, reqURL string, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, http.NoBody)
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}
