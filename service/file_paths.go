package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/westvault/staging/models"
)

// Paths is the staging server's on-disk layout, rooted at the
// configured base directory:
//
//	<base>/harvest/<PROVIDER-UUID>/<DEPOSIT-UUID>.<ext>
//	<base>/staging/au-<id>-content/    payloads of an open unit
//	<base>/staging/au-<id>/            bag being built at close
//	<base>/staging/au-<id>.tar.gz      sealed bag
//
// Every path the pipeline touches comes from here, so the cleaner can
// reason about what is safe to delete.
type Paths struct {
	baseDir string
}

func NewPaths(baseDir string) *Paths {
	return &Paths{baseDir: baseDir}
}

// BaseDir returns the data directory root.
func (paths *Paths) BaseDir() string {
	return paths.baseDir
}

// HarvestDir is where a provider's downloaded payloads live.
func (paths *Paths) HarvestDir(providerUUID string) string {
	return filepath.Join(paths.baseDir, "harvest", strings.ToUpper(providerUUID))
}

// HarvestFile is the local path of one deposit's harvested payload.
func (paths *Paths) HarvestFile(deposit *models.Deposit) string {
	return filepath.Join(paths.HarvestDir(deposit.ProviderUUID), deposit.FileName())
}

// StagingDir holds archival unit bags, open and sealed.
func (paths *Paths) StagingDir() string {
	return filepath.Join(paths.baseDir, "staging")
}

// ContainerName is the archival unit's bag name, e.g. "au-7".
func (paths *Paths) ContainerName(containerID uint64) string {
	return fmt.Sprintf("au-%d", containerID)
}

// ContainerDir is the bag directory of an archival unit being
// sealed.
func (paths *Paths) ContainerDir(containerID uint64) string {
	return filepath.Join(paths.StagingDir(), paths.ContainerName(containerID))
}

// ContainerContentDir is where an open archival unit accumulates
// payload copies until it closes and the bag is built.
func (paths *Paths) ContainerContentDir(containerID uint64) string {
	return paths.ContainerDir(containerID) + "-content"
}

// SealedContainerFile is where the sealed, tarred bag of a closed
// archival unit lands. This is the file the deposit transmitter tells
// the network to fetch.
func (paths *Paths) SealedContainerFile(containerID uint64) string {
	return paths.ContainerDir(containerID) + ".tar.gz"
}
