package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/service"
)

func TestPathsLayout(t *testing.T) {
	paths := service.NewPaths("/data/westvault")
	deposit := models.NewDeposit("a1e9e2bd-b83d-4040-b6bb-b2b4cdbd17cf",
		"11111111-1111-1111-1111-111111111111")
	deposit.URL = "http://journal.example.org/pln/deposits/x.zip?key=abc"

	assert.Equal(t,
		"/data/westvault/harvest/A1E9E2BD-B83D-4040-B6BB-B2B4CDBD17CF",
		paths.HarvestDir(deposit.ProviderUUID))
	assert.Equal(t,
		"/data/westvault/harvest/A1E9E2BD-B83D-4040-B6BB-B2B4CDBD17CF/11111111-1111-1111-1111-111111111111.zip",
		paths.HarvestFile(deposit))
	assert.Equal(t, "/data/westvault/staging", paths.StagingDir())
	assert.Equal(t, "au-7", paths.ContainerName(7))
	assert.Equal(t, "/data/westvault/staging/au-7", paths.ContainerDir(7))
	assert.Equal(t, "/data/westvault/staging/au-7-content", paths.ContainerContentDir(7))
	assert.Equal(t, "/data/westvault/staging/au-7.tar.gz", paths.SealedContainerFile(7))
}
