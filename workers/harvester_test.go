package workers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/util/testutil"
	"github.com/westvault/staging/workers"
)

func testNow() time.Time {
	return time.Now()
}

func TestHarvesterProcess(t *testing.T) {
	payload := bytes.Repeat([]byte("article"), 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		http.ServeContent(w, r, "dep.zip", testNow(), bytes.NewReader(payload))
	}))
	defer server.Close()

	ctx := testutil.NewContext(t)
	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	deposit.URL = server.URL + "/dep.zip"
	deposit.Size = int64(len(payload))

	harvester := workers.NewHarvester(ctx)
	outcome, message := harvester.Process(deposit)
	require.Equal(t, workers.OutcomeSuccess, outcome, message)
	assert.Equal(t, 1, deposit.HarvestAttempts)
	assert.Equal(t, "application/zip", deposit.ContentType)
	assert.Empty(t, deposit.ErrorLog)

	written, err := os.ReadFile(ctx.Paths.HarvestFile(deposit))
	require.NoError(t, err)
	assert.Equal(t, payload, written)
}

func TestHarvesterSizeToleranceWarning(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 10000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "dep.zip", testNow(), bytes.NewReader(payload))
	}))
	defer server.Close()

	ctx := testutil.NewContext(t)
	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	deposit.URL = server.URL + "/dep.zip"
	// Declared size is 20% off; beyond tolerance, but harvest still
	// proceeds with a warning on the error log.
	deposit.Size = 8000

	harvester := workers.NewHarvester(ctx)
	outcome, _ := harvester.Process(deposit)
	require.Equal(t, workers.OutcomeSuccess, outcome)
	require.Len(t, deposit.ErrorLog, 1)
	assert.Contains(t, deposit.ErrorLog[0], "differ")
}

func TestHarvesterSkipsAfterMaxAttempts(t *testing.T) {
	ctx := testutil.NewContext(t)
	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	deposit.HarvestAttempts = ctx.Config.MaxHarvestAttempts + 1

	harvester := workers.NewHarvester(ctx)
	outcome, message := harvester.Process(deposit)
	assert.Equal(t, workers.OutcomeSkip, outcome)
	assert.Contains(t, message, "exceed")
	// A skipped deposit does not burn another attempt.
	assert.Equal(t, ctx.Config.MaxHarvestAttempts+1, deposit.HarvestAttempts)
}

func TestHarvesterFailsOnMissingPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	ctx := testutil.NewContext(t)
	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	deposit.URL = server.URL + "/gone.zip"

	harvester := workers.NewHarvester(ctx)
	outcome, message := harvester.Process(deposit)
	assert.Equal(t, workers.OutcomeFailure, outcome)
	assert.Contains(t, message, "404")
	assert.Equal(t, 1, deposit.HarvestAttempts)
}

func TestHarvesterPreflight(t *testing.T) {
	ctx := testutil.NewContext(t)
	harvester := workers.NewHarvester(ctx)

	small := testutil.RandomDeposit(testutil.RandomUUID())
	small.Size = 1024
	require.NoError(t, harvester.PreprocessBatch([]*models.Deposit{small}))

	// A batch bigger than any disk must abort before fetching.
	huge := testutil.RandomDeposit(testutil.RandomUUID())
	huge.Size = int64(1) << 60
	err := harvester.PreprocessBatch([]*models.Deposit{huge})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "free")
}
