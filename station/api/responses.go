package api

import (
	"net/http"

	"github.com/trixelnet/contributor/pkg/api"
	"github.com/trixelnet/contributor/station"
)

var (
	_ api.Response = (*statusResponse)(nil)
	_ api.Response = (*deregisterResponse)(nil)
)

type statusResponse struct {
	station.Status
}

func (r statusResponse) Code() int {
	return http.StatusOK
}

func (r statusResponse) Empty() bool {
	return false
}

type deregisterResponse struct{}

func (r deregisterResponse) Code() int {
	return http.StatusNoContent
}

func (r deregisterResponse) Empty() bool {
	return true
}

type healthResponse struct {
	Status     string `json:"status"`
	InstanceID string `json:"instance_id"`
}
