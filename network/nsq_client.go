package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nsqio/nsq/nsqd"
)

// NSQStats contains info about the status of NSQ and its topics
// and queues. This info comes from a GET call to the /stats endpoint.
type NSQStats struct {
	StatusCode int          `json:"status_code"`
	StatusText string       `json:"status_txt"`
	Data       NSQStatsData `json:"data"`
}

// NSQStatsData contains the important info returned by a call to
// NSQ's /stats endpoint, including the number of items in each topic
// and queue.
type NSQStatsData struct {
	Version string            `json:"version"`
	Health  string            `json:"status_code"`
	Topics  []nsqd.TopicStats `json:"topics"`
}

// NSQClient is a write-side client for nsqd's HTTP interface. The
// queue filler posts deposit UUIDs into stage topics through it; the
// stage workers read with consumers, not with this client.
type NSQClient struct {
	URL string
}

// NewNSQClient returns a client that talks to the nsqd HTTP address,
// which usually ends with :4151 and is available through
// Config.NsqdHttpAddress.
func NewNSQClient(url string) *NSQClient {
	return &NSQClient{URL: url}
}

// Enqueue posts a deposit UUID into the named topic.
func (client *NSQClient) Enqueue(topic, depositUUID string) error {
	url := fmt.Sprintf("%s/put?topic=%s", client.URL, topic)
	resp, err := http.Post(url, "text/plain", bytes.NewBufferString(depositUUID))
	if err != nil {
		return fmt.Errorf("nsqd returned an error when queuing deposit: %v", err)
	}
	if resp == nil {
		return fmt.Errorf("no response from nsqd at '%s', is it running?", url)
	}

	// nsqd sends a simple OK. We have to read the response body,
	// or the connection will hang open forever.
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyText := "[no response body]"
		if len(body) > 0 {
			bodyText = string(body)
		}
		return fmt.Errorf("nsqd returned status code %d when attempting to queue deposit. "+
			"Response body: %s", resp.StatusCode, bodyText)
	}
	return nil
}

// GetStats fetches basic stats from NSQ. The /stats endpoint returns
// a richer set than we parse; the health check only needs topic
// depths. Note that requests to /stats/ (with trailing slash)
// produce a 404.
func (client *NSQClient) GetStats() (*NSQStats, error) {
	url := fmt.Sprintf("%s/stats?format=json", client.URL)
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NSQ returned status code %d, body: %s",
			resp.StatusCode, body)
	}
	stats := &NSQStats{}
	err = json.Unmarshal(body, stats)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
