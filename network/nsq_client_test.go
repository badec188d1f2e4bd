package network_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westvault/staging/network"
)

func TestNSQClientEnqueue(t *testing.T) {
	var gotTopic, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTopic = r.URL.Query().Get("topic")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	client := network.NewNSQClient(server.URL)
	err := client.Enqueue("harvest_topic", "B78582F0-8F3E-4F21-8D2E-7F9B35762D05")
	require.NoError(t, err)
	assert.Equal(t, "harvest_topic", gotTopic)
	assert.Equal(t, "B78582F0-8F3E-4F21-8D2E-7F9B35762D05", gotBody)
}

func TestNSQClientEnqueueError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "E_BAD_TOPIC", http.StatusBadRequest)
	}))
	defer server.Close()

	client := network.NewNSQClient(server.URL)
	err := client.Enqueue("bad topic", "B78582F0-8F3E-4F21-8D2E-7F9B35762D05")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E_BAD_TOPIC")
}

func TestNSQClientGetStats(t *testing.T) {
	statsJSON := `{"status_code":200,"status_txt":"OK","data":{"version":"0.3.8",
		"topics":[{"topic_name":"harvest_topic","depth":3}]}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats", r.URL.Path)
		w.Write([]byte(statsJSON))
	}))
	defer server.Close()

	client := network.NewNSQClient(server.URL)
	stats, err := client.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 200, stats.StatusCode)
	require.Len(t, stats.Data.Topics, 1)
	assert.Equal(t, "harvest_topic", stats.Data.Topics[0].TopicName)
	assert.EqualValues(t, 3, stats.Data.Topics[0].Depth)
}
