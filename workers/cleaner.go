package workers

import (
	"os"

	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/util"
	"github.com/westvault/staging/util/fileutil"
)

// Cleaner reclaims disk space from finished work: harvested payloads
// of acknowledged deposits, and sealed archival unit files whose
// member deposits have all been acknowledged. It never touches the
// deposit records themselves; the datastore is the permanent record.
//
// Cleaner defaults to a dry run. Deleting preservation artifacts is
// the one thing here you can't undo, so the real thing requires an
// explicit flag.
type Cleaner struct {
	Context *context.Context
	DryRun  bool
}

func NewCleaner(_context *context.Context, dryRun bool) *Cleaner {
	return &Cleaner{Context: _context, DryRun: dryRun}
}

// Run removes what is safe to remove and reports what it did (or, on
// a dry run, what it would do).
func (cleaner *Cleaner) Run() *models.WorkSummary {
	summary := models.NewWorkSummary()
	summary.Start()
	cleaner.cleanHarvestedPayloads(summary)
	cleaner.cleanSealedContainers(summary)
	summary.Finish()
	return summary
}

func (cleaner *Cleaner) cleanHarvestedPayloads(summary *models.WorkSummary) {
	log := cleaner.Context.MessageLog
	deposits, err := cleaner.Context.Store.DepositsByState(constants.StateAcknowledged)
	if err != nil {
		summary.AddError("cannot list acknowledged deposits: %v", err)
		return
	}
	for _, deposit := range deposits {
		localPath := cleaner.Context.Paths.HarvestFile(deposit)
		if !fileutil.FileExists(localPath) {
			continue
		}
		if cleaner.DryRun {
			log.Info("would delete %s (dry run)", localPath)
			continue
		}
		if err := os.Remove(localPath); err != nil {
			summary.AddError("cannot delete %s: %v", localPath, err)
			continue
		}
		log.Info("deleted harvested payload %s", localPath)
	}
}

func (cleaner *Cleaner) cleanSealedContainers(summary *models.WorkSummary) {
	log := cleaner.Context.MessageLog
	containers, err := cleaner.Context.Store.Containers()
	if err != nil {
		summary.AddError("cannot list containers: %v", err)
		return
	}
	for _, container := range containers {
		if container.Open {
			continue
		}
		done, err := cleaner.allMembersAcknowledged(container)
		if err != nil {
			summary.AddError("container %d: %v", container.ID, err)
			continue
		}
		if !done {
			continue
		}
		sealedFile := cleaner.Context.Paths.SealedContainerFile(container.ID)
		if !fileutil.FileExists(sealedFile) {
			continue
		}
		if cleaner.DryRun {
			log.Info("would delete %s (dry run)", sealedFile)
			continue
		}
		if err := os.Remove(sealedFile); err != nil {
			summary.AddError("cannot delete %s: %v", sealedFile, err)
			continue
		}
		log.Info("deleted sealed container %s", sealedFile)
	}
}

// allMembersAcknowledged reports whether every deposit packed into
// the container has finished its pipeline. The sealed file must stay
// on disk while any member might still be fetched by the network.
func (cleaner *Cleaner) allMembersAcknowledged(container *models.AuContainer) (bool, error) {
	acknowledged, err := cleaner.Context.Store.DepositsByState(constants.StateAcknowledged)
	if err != nil {
		return false, err
	}
	acknowledgedUUIDs := make([]string, 0, len(acknowledged))
	for _, deposit := range acknowledged {
		acknowledgedUUIDs = append(acknowledgedUUIDs, deposit.UUID)
	}
	for _, memberUUID := range container.DepositUUIDs {
		if !util.StringListContains(acknowledgedUUIDs, memberUUID) {
			return false, nil
		}
	}
	return true, nil
}
