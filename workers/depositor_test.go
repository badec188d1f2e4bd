package workers_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/util/fileutil"
	"github.com/westvault/staging/util/testutil"
	"github.com/westvault/staging/workers"
)

func sealedContainerFixture(t *testing.T, ctx *context.Context, deposit *models.Deposit, open bool) *models.AuContainer {
	t.Helper()
	container := models.NewAuContainer()
	container.AddDeposit(deposit)
	if !open {
		container.Close()
	}
	require.NoError(t, ctx.Store.SaveContainer(container))
	deposit.AuContainerID = container.ID
	if !open {
		require.NoError(t, fileutil.MkdirAll(ctx.Paths.StagingDir()))
		require.NoError(t, os.WriteFile(
			ctx.Paths.SealedContainerFile(container.ID),
			[]byte("sealed bag bytes"), 0644))
	}
	return container
}

func TestDepositorAnnouncesSealedContainer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://"+r.Host+"/statement/1")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	ctx := testutil.NewContext(t)
	ctx.Config.SwordServiceURL = server.URL
	ctx.Config.SwordProviderUUID = testutil.RandomUUID()

	provider := testutil.RandomProvider()
	require.NoError(t, ctx.Store.SaveProvider(provider))
	deposit := testutil.RandomDeposit(provider.UUID)
	deposit.SetState(constants.StateOrganized)
	sealedContainerFixture(t, ctx, deposit, false)

	depositor := workers.NewDepositor(ctx)
	outcome, message := depositor.Process(deposit)
	require.Equal(t, workers.OutcomeSuccess, outcome, message)
	assert.Contains(t, deposit.DepositReceipt, "/statement/1")
}

func TestDepositorSkipsOpenContainer(t *testing.T) {
	ctx := testutil.NewContext(t)
	provider := testutil.RandomProvider()
	require.NoError(t, ctx.Store.SaveProvider(provider))
	deposit := testutil.RandomDeposit(provider.UUID)
	deposit.SetState(constants.StateOrganized)
	sealedContainerFixture(t, ctx, deposit, true)

	depositor := workers.NewDepositor(ctx)
	outcome, message := depositor.Process(deposit)
	assert.Equal(t, workers.OutcomeSkip, outcome)
	assert.Contains(t, message, "still open")
}

func TestDepositorSkipsUnsealedContainer(t *testing.T) {
	ctx := testutil.NewContext(t)
	provider := testutil.RandomProvider()
	require.NoError(t, ctx.Store.SaveProvider(provider))
	deposit := testutil.RandomDeposit(provider.UUID)
	deposit.SetState(constants.StateOrganized)

	// Closed container, but the sealed file was never written. The
	// deposit waits for the bag to be rebuilt instead of erroring out.
	container := models.NewAuContainer()
	container.AddDeposit(deposit)
	container.Close()
	require.NoError(t, ctx.Store.SaveContainer(container))
	deposit.AuContainerID = container.ID

	depositor := workers.NewDepositor(ctx)
	outcome, message := depositor.Process(deposit)
	assert.Equal(t, workers.OutcomeSkip, outcome)
	assert.Contains(t, message, "no sealed file")
}

func TestDepositorRejectedDownstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not accepting", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx := testutil.NewContext(t)
	ctx.Config.SwordServiceURL = server.URL
	ctx.Config.SwordProviderUUID = testutil.RandomUUID()

	provider := testutil.RandomProvider()
	require.NoError(t, ctx.Store.SaveProvider(provider))
	deposit := testutil.RandomDeposit(provider.UUID)
	deposit.SetState(constants.StateOrganized)
	sealedContainerFixture(t, ctx, deposit, false)

	depositor := workers.NewDepositor(ctx)
	outcome, message := depositor.Process(deposit)
	assert.Equal(t, workers.OutcomeFailure, outcome)
	assert.Contains(t, message, "503")
}

func TestStatusCheckerTerms(t *testing.T) {
	var mutex sync.Mutex
	term := constants.TermInProgress
	setTerm := func(value string) {
		mutex.Lock()
		term = value
		mutex.Unlock()
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mutex.Lock()
		current := term
		mutex.Unlock()
		w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom">` +
			`<category scheme="http://purl.org/net/sword/terms/state" term="` +
			current + `"/></feed>`))
	}))
	defer server.Close()

	ctx := testutil.NewContext(t)
	ctx.Config.SwordServiceURL = server.URL
	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	deposit.SetState(constants.StateDeposited)
	deposit.DepositReceipt = server.URL + "/statement/1"

	checker := workers.NewStatusChecker(ctx)

	outcome, _ := checker.Process(deposit)
	assert.Equal(t, workers.OutcomeSkip, outcome)

	setTerm(constants.TermAgreement)
	outcome, _ = checker.Process(deposit)
	assert.Equal(t, workers.OutcomeSuccess, outcome)

	setTerm(constants.TermFailed)
	outcome, message := checker.Process(deposit)
	assert.Equal(t, workers.OutcomeFailure, outcome)
	assert.Contains(t, message, "failed")
}

func TestStatusCheckerNoReceipt(t *testing.T) {
	ctx := testutil.NewContext(t)
	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	deposit.SetState(constants.StateDeposited)

	checker := workers.NewStatusChecker(ctx)
	outcome, _ := checker.Process(deposit)
	assert.Equal(t, workers.OutcomeFailure, outcome)
}

func TestStatusCheckerUnreachableNetwork(t *testing.T) {
	ctx := testutil.NewContext(t)
	ctx.Config.DepositTimeout = "1s"
	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	deposit.SetState(constants.StateDeposited)
	deposit.DepositReceipt = "http://127.0.0.1:1/statement/1"

	checker := workers.NewStatusChecker(ctx)
	outcome, _ := checker.Process(deposit)
	assert.Equal(t, workers.OutcomeSkip, outcome)
}
