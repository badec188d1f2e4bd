package workers_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/util/testutil"
	"github.com/westvault/staging/workers"
)

// scriptedStage returns a canned outcome per deposit UUID, defaulting
// to success.
type scriptedStage struct {
	input    string
	outcomes map[string]workers.Outcome
	mutex    sync.Mutex
	seen     []string
}

func (stage *scriptedStage) Name() string       { return "scripted" }
func (stage *scriptedStage) InputState() string { return stage.input }

func (stage *scriptedStage) Process(deposit *models.Deposit) (workers.Outcome, string) {
	stage.mutex.Lock()
	stage.seen = append(stage.seen, deposit.UUID)
	stage.mutex.Unlock()
	if outcome, ok := stage.outcomes[deposit.UUID]; ok {
		return outcome, "scripted outcome"
	}
	return workers.OutcomeSuccess, ""
}

func TestStageRunnerTransitions(t *testing.T) {
	ctx := testutil.NewContext(t)
	good := testutil.RandomDeposit(testutil.RandomUUID())
	bad := testutil.RandomDeposit(good.ProviderUUID)
	stuck := testutil.RandomDeposit(good.ProviderUUID)
	require.NoError(t, ctx.Store.SaveDeposit(good))
	require.NoError(t, ctx.Store.SaveDeposit(bad))
	require.NoError(t, ctx.Store.SaveDeposit(stuck))

	stage := &scriptedStage{
		input: constants.StateSubmitted,
		outcomes: map[string]workers.Outcome{
			bad.UUID:   workers.OutcomeFailure,
			stuck.UUID: workers.OutcomeSkip,
		},
	}
	runner := workers.NewStageRunner(ctx, stage, 2)
	summary := runner.Run()
	require.True(t, summary.Succeeded(), summary.AllErrorsAsString())
	assert.Len(t, stage.seen, 3)

	found, _ := ctx.Store.DepositByUUID(good.UUID)
	assert.Equal(t, constants.StateHarvested, found.State)
	assert.Empty(t, found.ErrorLog)

	found, _ = ctx.Store.DepositByUUID(bad.UUID)
	assert.Equal(t, constants.StateHarvestError, found.State)
	require.Len(t, found.ErrorLog, 1)
	assert.Contains(t, found.ErrorLog[0], "scripted outcome")

	found, _ = ctx.Store.DepositByUUID(stuck.UUID)
	assert.Equal(t, constants.StateSubmitted, found.State)

	assert.EqualValues(t, 1, ctx.Succeeded())
	assert.EqualValues(t, 1, ctx.Failed())
}

func TestStageRunnerDryRun(t *testing.T) {
	ctx := testutil.NewContext(t)
	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	require.NoError(t, ctx.Store.SaveDeposit(deposit))

	stage := &scriptedStage{input: constants.StateSubmitted}
	runner := workers.NewStageRunner(ctx, stage, 1)
	runner.DryRun = true
	summary := runner.Run()
	require.True(t, summary.Succeeded())
	assert.Empty(t, stage.seen)

	found, _ := ctx.Store.DepositByUUID(deposit.UUID)
	assert.Equal(t, constants.StateSubmitted, found.State)
}

func TestStageRunnerLimit(t *testing.T) {
	ctx := testutil.NewContext(t)
	providerUUID := testutil.RandomUUID()
	for i := 0; i < 5; i++ {
		require.NoError(t, ctx.Store.SaveDeposit(testutil.RandomDeposit(providerUUID)))
	}
	stage := &scriptedStage{input: constants.StateSubmitted}
	runner := workers.NewStageRunner(ctx, stage, 1)
	runner.Limit = 2
	runner.Run()
	assert.Len(t, stage.seen, 2)
}

func TestProcessOneChecksState(t *testing.T) {
	ctx := testutil.NewContext(t)
	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	deposit.SetState(constants.StateHarvested)
	require.NoError(t, ctx.Store.SaveDeposit(deposit))

	// Stage consumes submitted; the deposit has moved on, so the
	// message is dropped without touching the record.
	stage := &scriptedStage{input: constants.StateSubmitted}
	runner := workers.NewStageRunner(ctx, stage, 1)
	require.NoError(t, runner.ProcessOne(deposit.UUID))
	assert.Empty(t, stage.seen)

	found, _ := ctx.Store.DepositByUUID(deposit.UUID)
	assert.Equal(t, constants.StateHarvested, found.State)

	// Unknown deposits are dropped too, not retried forever.
	require.NoError(t, runner.ProcessOne(testutil.RandomUUID()))
}

// failingPreflight aborts every batch.
type failingPreflight struct {
	scriptedStage
}

func (stage *failingPreflight) PreprocessBatch(deposits []*models.Deposit) error {
	return fmt.Errorf("preflight says no")
}

func TestBatchPreprocessorAbortsRun(t *testing.T) {
	ctx := testutil.NewContext(t)
	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	require.NoError(t, ctx.Store.SaveDeposit(deposit))

	stage := &failingPreflight{scriptedStage{input: constants.StateSubmitted}}
	runner := workers.NewStageRunner(ctx, stage, 1)
	summary := runner.Run()
	assert.True(t, summary.ErrorIsFatal)
	assert.Contains(t, summary.FirstError(), "preflight says no")
	assert.Empty(t, stage.seen)

	found, _ := ctx.Store.DepositByUUID(deposit.UUID)
	assert.Equal(t, constants.StateSubmitted, found.State)
}
