package workers

import (
	"fmt"
	"time"

	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/network"
	"github.com/westvault/staging/platform"
	"github.com/westvault/staging/util/fileutil"
)

// Harvester downloads submitted deposit payloads from provider sites
// into the provider's harvest directory. It moves deposits from
// submitted to harvested.
//
// Before a batch run touches the network it preflights disk space:
// the whole batch must fit on the harvest volume with a safety margin
// to spare, or nothing is fetched at all.
type Harvester struct {
	Context     *context.Context
	client      *network.HarvestClient
	maxAttempts int
}

func NewHarvester(_context *context.Context) *Harvester {
	timeout := models.DurationValue(_context.Config.HarvestTimeout, 90*time.Second)
	return &Harvester{
		Context:     _context,
		client:      network.NewHarvestClient(timeout),
		maxAttempts: _context.Config.MaxHarvestAttempts,
	}
}

func (harvester *Harvester) Name() string {
	return "harvest"
}

func (harvester *Harvester) InputState() string {
	return constants.StateSubmitted
}

// PreprocessBatch aborts the run when downloading every deposit in
// the batch would leave the harvest volume with less than the minimum
// free space. Half a batch on a full disk is worse than no batch.
func (harvester *Harvester) PreprocessBatch(deposits []*models.Deposit) error {
	var batchSize int64
	for _, deposit := range deposits {
		batchSize += deposit.Size
	}
	volume := models.NewVolume(harvester.Context.Paths.BaseDir())
	free, err := volume.FreeSpace()
	if err != nil {
		return err
	}
	total, err := volume.TotalSpace()
	if err != nil {
		return err
	}
	if total == 0 {
		return fmt.Errorf("harvest volume at %s reports zero size", volume.Path())
	}
	remaining := float64(free) - float64(batchSize)
	if remaining/float64(total) < constants.MinFreeSpaceRatio {
		return fmt.Errorf("harvesting %d bytes would leave less than %.0f%% of the "+
			"volume free (free: %d, total: %d)",
			batchSize, constants.MinFreeSpaceRatio*100, free, total)
	}
	return nil
}

func (harvester *Harvester) Process(deposit *models.Deposit) (Outcome, string) {
	if deposit.HarvestAttempts > harvester.maxAttempts {
		return OutcomeSkip, fmt.Sprintf(
			"%d harvest attempts exceed the maximum of %d, waiting for an operator",
			deposit.HarvestAttempts, harvester.maxAttempts)
	}
	// Count the attempt before any I/O, so a crash mid-download
	// still counts against the retry budget.
	deposit.HarvestAttempts++

	reportedSize, err := harvester.client.Head(deposit.URL)
	if err != nil {
		return OutcomeFailure, err.Error()
	}
	if diff := relativeSizeDifference(reportedSize, deposit.Size); diff > constants.FileSizeTolerance {
		// Provider size estimates drift; log it and carry on. The
		// checksum validation is what actually protects the payload.
		deposit.AddErrorLog(
			"harvest: server reports %d bytes but envelope declared %d (%.1f%% difference)",
			reportedSize, deposit.Size, diff*100)
		harvester.Context.MessageLog.Warning(
			"deposit %s: reported size %d differs from declared size %d",
			deposit.UUID, reportedSize, deposit.Size)
	}

	harvestDir := harvester.Context.Paths.HarvestDir(deposit.ProviderUUID)
	if err := fileutil.MkdirAll(harvestDir); err != nil {
		return OutcomeFailure, fmt.Sprintf("cannot create harvest directory: %v", err)
	}
	localPath := harvester.Context.Paths.HarvestFile(deposit)
	result, err := harvester.client.Fetch(deposit.URL, localPath)
	if err != nil {
		return OutcomeFailure, err.Error()
	}

	deposit.ContentType = result.ContentType
	if deposit.ContentType == "" {
		guessed, err := platform.GuessMimeType(localPath)
		if err == nil {
			deposit.ContentType = guessed
		}
	}
	harvester.Context.MessageLog.Info("deposit %s: harvested %d bytes to %s",
		deposit.UUID, result.BytesWritten, localPath)
	return OutcomeSuccess, ""
}

// relativeSizeDifference returns |a-b| relative to the larger of the
// two, so the tolerance reads the same no matter which side drifted.
func relativeSizeDifference(a, b int64) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	larger := a
	if b > larger {
		larger = b
	}
	if larger == 0 {
		return 0
	}
	return float64(diff) / float64(larger)
}
