package network_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westvault/staging/network"
)

func TestHarvestClientHead(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 2048)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "WestVaultPlnBot 1.0", r.Header.Get("User-Agent"))
		http.ServeContent(w, r, "deposit.zip", time.Now(), bytes.NewReader(payload))
	}))
	defer server.Close()

	client := network.NewHarvestClient(5 * time.Second)
	size, err := client.Head(server.URL + "/deposit.zip")
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), size)
}

func TestHarvestClientHeadNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := network.NewHarvestClient(5 * time.Second)
	_, err := client.Head(server.URL + "/missing.zip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestHarvestClientHeadNoContentLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Chunked response, no Content-Length header.
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := network.NewHarvestClient(5 * time.Second)
	_, err := client.Head(server.URL + "/deposit.zip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Content-Length")
}

func TestHarvestClientFetch(t *testing.T) {
	payload := bytes.Repeat([]byte("payload-bytes-"), 10000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(payload)
	}))
	defer server.Close()

	localPath := filepath.Join(t.TempDir(), "deposit.zip")
	client := network.NewHarvestClient(5 * time.Second)
	result, err := client.Fetch(server.URL+"/deposit.zip", localPath)
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), result.BytesWritten)
	assert.Equal(t, "application/zip", result.ContentType)

	written, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, payload, written)
}

func TestHarvestClientFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	localPath := filepath.Join(t.TempDir(), "deposit.zip")
	client := network.NewHarvestClient(5 * time.Second)
	_, err := client.Fetch(server.URL+"/deposit.zip", localPath)
	require.Error(t, err)

	// No partial file should be left behind.
	_, statErr := os.Stat(localPath)
	assert.True(t, os.IsNotExist(statErr))
}
