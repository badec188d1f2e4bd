package workers_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/util/fileutil"
	"github.com/westvault/staging/util/testutil"
	"github.com/westvault/staging/workers"
)

func TestOrganizerFillsAndSealsContainer(t *testing.T) {
	ctx := testutil.NewContext(t)
	ctx.Config.MaxAuSize = 30

	providerUUID := testutil.RandomUUID()
	first := testutil.RandomDeposit(providerUUID)
	first.SetState(constants.StateVirusChecked)
	testutil.WritePayload(t, ctx, first, []byte("twenty bytes of data"))
	second := testutil.RandomDeposit(providerUUID)
	second.SetState(constants.StateVirusChecked)
	testutil.WritePayload(t, ctx, second, []byte("twenty more bytes!!!"))

	organizer := workers.NewOrganizer(ctx)

	outcome, message := organizer.Process(first)
	require.Equal(t, workers.OutcomeSuccess, outcome, message)
	assert.EqualValues(t, 1, first.AuContainerID)

	container, err := ctx.Store.OpenContainer()
	require.NoError(t, err)
	require.NotNil(t, container)
	assert.EqualValues(t, 20, container.Size)

	// The second deposit pushes the container past MaxAuSize, so it
	// closes and seals.
	outcome, message = organizer.Process(second)
	require.Equal(t, workers.OutcomeSuccess, outcome, message)
	assert.EqualValues(t, 1, second.AuContainerID)

	open, err := ctx.Store.OpenContainer()
	require.NoError(t, err)
	assert.Nil(t, open)

	closed, err := ctx.Store.ContainerByID(1)
	require.NoError(t, err)
	assert.False(t, closed.Open)
	assert.Equal(t, []string{first.UUID, second.UUID}, closed.DepositUUIDs)
	assert.NotNil(t, closed.ClosedAt)

	// Sealed artifact exists; working directories are gone.
	assert.True(t, fileutil.FileExists(ctx.Paths.SealedContainerFile(1)))
	assert.False(t, fileutil.FileExists(ctx.Paths.ContainerContentDir(1)))
	assert.False(t, fileutil.FileExists(ctx.Paths.ContainerDir(1)))
}

func TestOrganizerNextDepositOpensNewContainer(t *testing.T) {
	ctx := testutil.NewContext(t)
	ctx.Config.MaxAuSize = 10

	providerUUID := testutil.RandomUUID()
	first := testutil.RandomDeposit(providerUUID)
	first.SetState(constants.StateVirusChecked)
	testutil.WritePayload(t, ctx, first, []byte("more than ten bytes"))
	second := testutil.RandomDeposit(providerUUID)
	second.SetState(constants.StateVirusChecked)
	testutil.WritePayload(t, ctx, second, []byte("x"))

	organizer := workers.NewOrganizer(ctx)
	outcome, message := organizer.Process(first)
	require.Equal(t, workers.OutcomeSuccess, outcome, message)
	outcome, message = organizer.Process(second)
	require.Equal(t, workers.OutcomeSuccess, outcome, message)

	assert.EqualValues(t, 1, first.AuContainerID)
	assert.EqualValues(t, 2, second.AuContainerID)
}

func TestOrganizerReplayedDepositCountsOnce(t *testing.T) {
	ctx := testutil.NewContext(t)
	ctx.Config.MaxAuSize = 100

	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	deposit.SetState(constants.StateVirusChecked)
	testutil.WritePayload(t, ctx, deposit, []byte("twenty bytes of data"))

	organizer := workers.NewOrganizer(ctx)
	outcome, message := organizer.Process(deposit)
	require.Equal(t, workers.OutcomeSuccess, outcome, message)

	// A crash between the container append and the state transition
	// re-selects the deposit on the next run. The replay must not
	// double-count it.
	outcome, message = organizer.Process(deposit)
	require.Equal(t, workers.OutcomeSuccess, outcome, message)

	container, err := ctx.Store.OpenContainer()
	require.NoError(t, err)
	require.NotNil(t, container)
	assert.EqualValues(t, 20, container.Size)
	assert.Equal(t, []string{deposit.UUID}, container.DepositUUIDs)
}

func TestOrganizerSealFailureKeepsContainerClosed(t *testing.T) {
	ctx := testutil.NewContext(t)
	ctx.Config.MaxAuSize = 10

	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	deposit.SetState(constants.StateVirusChecked)
	testutil.WritePayload(t, ctx, deposit, []byte("more than ten bytes"))

	// A stray file where the bag directory belongs makes the bag
	// build fail after the container closes.
	require.NoError(t, fileutil.MkdirAll(ctx.Paths.StagingDir()))
	require.NoError(t, os.WriteFile(ctx.Paths.ContainerDir(1), []byte("in the way"), 0644))

	organizer := workers.NewOrganizer(ctx)
	outcome, message := organizer.Process(deposit)
	require.Equal(t, workers.OutcomeSuccess, outcome, message)

	// The container stays closed with its member intact; only the
	// sealed artifact is missing until the operator rebuilds it.
	closed, err := ctx.Store.ContainerByID(1)
	require.NoError(t, err)
	require.NotNil(t, closed)
	assert.False(t, closed.Open)
	assert.Equal(t, []string{deposit.UUID}, closed.DepositUUIDs)
	assert.False(t, fileutil.FileExists(ctx.Paths.SealedContainerFile(1)))
}

func TestOrganizerMissingPayload(t *testing.T) {
	ctx := testutil.NewContext(t)
	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	deposit.SetState(constants.StateVirusChecked)

	organizer := workers.NewOrganizer(ctx)
	outcome, message := organizer.Process(deposit)
	assert.Equal(t, workers.OutcomeFailure, outcome)
	assert.Contains(t, message, "cannot copy payload")
}
