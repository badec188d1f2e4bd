package service_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/service"
	"github.com/westvault/staging/util/storage"
)

const gateUUID = "A1E9E2BD-B83D-4040-B6BB-B2B4CDBD17CF"

func gateTestStore(t *testing.T) *storage.BoltDB {
	t.Helper()
	db, err := storage.NewBoltDB(filepath.Join(t.TempDir(), "staging.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestAccessGateEmptyToken(t *testing.T) {
	store := gateTestStore(t)
	gate := service.NewAccessGate(store, true)
	allowed, err := gate.Allowed("")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = gate.Allowed("   ")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAccessGateDefault(t *testing.T) {
	store := gateTestStore(t)

	gate := service.NewAccessGate(store, true)
	allowed, err := gate.Allowed(gateUUID)
	require.NoError(t, err)
	assert.True(t, allowed)

	gate = service.NewAccessGate(store, false)
	allowed, err = gate.Allowed(gateUUID)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAccessGateAllowList(t *testing.T) {
	store := gateTestStore(t)
	require.NoError(t, store.AddAccessEntry(models.ListAllow,
		models.NewAccessListEntry(gateUUID, "verified")))

	// Allow-list entry overrides a closed network.
	gate := service.NewAccessGate(store, false)
	allowed, err := gate.Allowed(gateUUID)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAccessGateAllowBeatsDeny(t *testing.T) {
	store := gateTestStore(t)
	require.NoError(t, store.AddAccessEntry(models.ListAllow,
		models.NewAccessListEntry(gateUUID, "verified")))
	require.NoError(t, store.AddAccessEntry(models.ListDeny,
		models.NewAccessListEntry(gateUUID, "spam deposits")))

	// The allow list wins even on a closed network.
	gate := service.NewAccessGate(store, false)
	allowed, err := gate.Allowed(gateUUID)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAccessGateDenyList(t *testing.T) {
	store := gateTestStore(t)
	require.NoError(t, store.AddAccessEntry(models.ListDeny,
		models.NewAccessListEntry(gateUUID, "spam deposits")))

	// Deny-list entry overrides an open network.
	gate := service.NewAccessGate(store, true)
	allowed, err := gate.Allowed(gateUUID)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAccessGateLowerCaseToken(t *testing.T) {
	store := gateTestStore(t)
	require.NoError(t, store.AddAccessEntry(models.ListDeny,
		models.NewAccessListEntry(gateUUID, "spam deposits")))

	gate := service.NewAccessGate(store, true)
	allowed, err := gate.Allowed("a1e9e2bd-b83d-4040-b6bb-b2b4cdbd17cf")
	require.NoError(t, err)
	assert.False(t, allowed)
}
