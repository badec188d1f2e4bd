package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westvault/staging/models"
)

func TestAuContainerAddDeposit(t *testing.T) {
	container := models.NewAuContainer()
	assert.True(t, container.Open)
	assert.EqualValues(t, 0, container.Size)

	first := models.NewDeposit("p", "first")
	first.Size = 1000
	second := models.NewDeposit("p", "second")
	second.Size = 2500

	container.AddDeposit(first)
	container.AddDeposit(second)
	assert.EqualValues(t, 3500, container.Size)
	assert.Equal(t, []string{"FIRST", "SECOND"}, container.DepositUUIDs)
}

func TestAuContainerAddDepositTwice(t *testing.T) {
	container := models.NewAuContainer()
	deposit := models.NewDeposit("p", "only")
	deposit.Size = 1000

	container.AddDeposit(deposit)
	container.AddDeposit(deposit)
	assert.EqualValues(t, 1000, container.Size)
	assert.Equal(t, []string{"ONLY"}, container.DepositUUIDs)
}

func TestAuContainerClose(t *testing.T) {
	container := models.NewAuContainer()
	container.Close()
	assert.False(t, container.Open)
	require.NotNil(t, container.ClosedAt)

	closedAt := *container.ClosedAt
	container.Close()
	assert.Equal(t, closedAt, *container.ClosedAt)
}
