package network

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/westvault/staging/constants"
)

// HarvestClient fetches deposit payloads from provider sites. It
// knows two tricks: a HEAD request to learn the size the provider's
// server reports, and a streaming GET that writes the payload to
// local storage in fixed-size chunks so memory use stays flat no
// matter how big the payload is.
type HarvestClient struct {
	httpClient *http.Client
	userAgent  string
}

// FetchResult describes a completed download.
type FetchResult struct {
	// BytesWritten is the payload size actually written to disk.
	BytesWritten int64

	// ContentType is the Content-Type the provider's server sent
	// with the payload. Empty if it sent none.
	ContentType string
}

// NewHarvestClient returns a client whose requests time out after the
// given duration. A request that hits the timeout is a harvest
// failure, not a crash.
func NewHarvestClient(timeout time.Duration) *HarvestClient {
	return &HarvestClient{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  constants.UserAgent,
	}
}

// Head asks the provider's server how big the payload is. Requires a
// 200 response with a numeric Content-Length; anything else is an
// error, because without a size we cannot sanity-check the deposit.
func (client *HarvestClient) Head(url string) (int64, error) {
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", client.userAgent)
	resp, err := client.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s failed: %v", url, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HEAD %s returned HTTP %d", url, resp.StatusCode)
	}
	contentLength := resp.Header.Get("Content-Length")
	if contentLength == "" {
		return 0, fmt.Errorf("HEAD %s response has no Content-Length", url)
	}
	size, err := strconv.ParseInt(contentLength, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s returned unparseable Content-Length '%s'", url, contentLength)
	}
	return size, nil
}

// Fetch downloads the payload at url to localPath, streaming in
// 64k chunks. On any failure the partial file is removed before the
// error is returned, so the datastore never believes in a file that
// isn't whole.
func (client *HarvestClient) Fetch(url, localPath string) (*FetchResult, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", client.userAgent)
	resp, err := client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned HTTP %d", url, resp.StatusCode)
	}

	file, err := os.Create(localPath)
	if err != nil {
		return nil, fmt.Errorf("cannot create %s: %v", localPath, err)
	}
	buffer := make([]byte, constants.HarvestChunkSize)
	bytesWritten, err := io.CopyBuffer(file, resp.Body, buffer)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(localPath)
		return nil, fmt.Errorf("error writing %s: %v", localPath, err)
	}
	return &FetchResult{
		BytesWritten: bytesWritten,
		ContentType:  resp.Header.Get("Content-Type"),
	}, nil
}
