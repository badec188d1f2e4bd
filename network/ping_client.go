package network

import (
	"io"
	"net/http"
	"time"

	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/models"
)

// maxPingBody bounds how much of a gateway response we'll read.
// Gateway documents are a few hundred bytes; anything much larger is
// a misconfigured server feeding us its home page.
const maxPingBody = 1024 * 1024

// PingClient contacts a provider's PLN gateway and reports what it
// found. It never returns a Go error: every failure mode is recorded
// on the PingResult, because the callers (health checker, whitelist
// sweep) treat a dead provider as data, not as a fault.
type PingClient struct {
	httpClient *http.Client
}

func NewPingClient(timeout time.Duration) *PingClient {
	return &PingClient{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ping requests the gateway document at gatewayURL and parses it.
func (client *PingClient) Ping(gatewayURL string) *models.PingResult {
	result := &models.PingResult{}
	req, err := http.NewRequest(http.MethodGet, gatewayURL, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req.Header.Set("User-Agent", constants.UserAgent)
	req.Header.Set("Accept", "application/xml,text/xml,*/*;q=0.1")
	resp, err := client.httpClient.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()
	result.HTTPStatus = resp.StatusCode
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPingBody))
	if err != nil {
		result.Error = "error reading gateway response: " + err.Error()
		return result
	}
	if resp.StatusCode != http.StatusOK {
		result.Error = "gateway returned HTTP " + resp.Status
		return result
	}
	result.ParsePingBody(body)
	return result
}
