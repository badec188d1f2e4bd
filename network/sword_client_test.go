package network_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westvault/staging/network"
)

const statementDoc = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <category scheme="http://purl.org/net/sword/terms/state"
            term="agreement" label="Deposit preserved"/>
</feed>`

func testAnnouncement() *network.DepositAnnouncement {
	return &network.DepositAnnouncement{
		DepositUUID:   "B78582F0-8F3E-4F21-8D2E-7F9B35762D05",
		Title:         "Journal of Examples",
		Email:         "staging@westvault.example.org",
		ProviderURL:   "http://journal.example.org",
		FetchURL:      "http://staging.example.org/fetch/au-7.tar.gz",
		Size:          1048576,
		ChecksumType:  "sha1",
		ChecksumValue: "da39a3ee5e6b4b0d3255bfef95601890afd80709",
		Volume:        "2",
		Issue:         "5",
		PubDate:       "2026-06-01",
		License:       map[string]string{"openAccessPolicy": "open"},
	}
}

func TestSwordClientCreateDeposit(t *testing.T) {
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Location", "http://"+r.Host+"/cont-iri/state/1")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := network.NewSwordClient(server.URL, "0FA3BB10-2C55-44B8-8C4B-A40E2D60E85E", 5*time.Second)
	statementURL, err := client.CreateDeposit(testAnnouncement())
	require.NoError(t, err)
	assert.Contains(t, statementURL, "/cont-iri/state/1")
	assert.Equal(t, "/col-iri/0FA3BB10-2C55-44B8-8C4B-A40E2D60E85E", gotPath)
	assert.True(t, strings.Contains(gotBody, "urn:uuid:B78582F0-8F3E-4F21-8D2E-7F9B35762D05"))
	assert.True(t, strings.Contains(gotBody, "da39a3ee5e6b4b0d3255bfef95601890afd80709"))
	assert.True(t, strings.Contains(gotBody, "au-7.tar.gz"))
}

func TestSwordClientCreateDepositRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not accepting", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := network.NewSwordClient(server.URL, "0FA3BB10-2C55-44B8-8C4B-A40E2D60E85E", 5*time.Second)
	_, err := client.CreateDeposit(testAnnouncement())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSwordClientStatement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml;type=feed")
		w.Write([]byte(statementDoc))
	}))
	defer server.Close()

	client := network.NewSwordClient(server.URL, "0FA3BB10-2C55-44B8-8C4B-A40E2D60E85E", 5*time.Second)
	term, err := client.Statement(server.URL + "/cont-iri/state/1")
	require.NoError(t, err)
	assert.Equal(t, "agreement", term)
}

func TestSwordClientStatementNoState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	defer server.Close()

	client := network.NewSwordClient(server.URL, "0FA3BB10-2C55-44B8-8C4B-A40E2D60E85E", 5*time.Second)
	_, err := client.Statement(server.URL + "/cont-iri/state/1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no state category")
}
