package workers

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/network"
)

// Depositor announces organized deposits to the downstream
// preservation network. It moves deposits from organized to
// deposited.
//
// A deposit can only be announced once its archival unit is closed
// and sealed. Deposits whose container is still filling, or whose
// sealed file has not been written yet, are skipped until a later run
// finds the artifact in place.
type Depositor struct {
	Context *context.Context
	Client  *network.SwordClient
}

func NewDepositor(_context *context.Context) *Depositor {
	timeout := models.DurationValue(_context.Config.DepositTimeout, 60*time.Second)
	return &Depositor{
		Context: _context,
		Client: network.NewSwordClient(
			_context.Config.SwordServiceURL,
			_context.Config.SwordProviderUUID,
			timeout),
	}
}

func (depositor *Depositor) Name() string {
	return "deposit"
}

func (depositor *Depositor) InputState() string {
	return constants.StateOrganized
}

func (depositor *Depositor) Process(deposit *models.Deposit) (Outcome, string) {
	store := depositor.Context.Store
	container, err := store.ContainerByID(deposit.AuContainerID)
	if err != nil {
		return OutcomeFailure, fmt.Sprintf("cannot load container %d: %v",
			deposit.AuContainerID, err)
	}
	if container == nil {
		return OutcomeFailure, fmt.Sprintf("container %d does not exist",
			deposit.AuContainerID)
	}
	if container.Open {
		return OutcomeSkip, fmt.Sprintf("container %d is still open", container.ID)
	}

	sealedFile := depositor.Context.Paths.SealedContainerFile(container.ID)
	info, err := os.Stat(sealedFile)
	if err != nil {
		return OutcomeSkip, fmt.Sprintf("container %d has no sealed file yet: %v",
			container.ID, err)
	}
	digest, err := fileDigest(sealedFile, constants.AlgSha1)
	if err != nil {
		return OutcomeFailure, err.Error()
	}

	provider, err := store.ProviderByUUID(deposit.ProviderUUID)
	if err != nil || provider == nil {
		return OutcomeFailure, fmt.Sprintf("cannot load provider %s: %v",
			deposit.ProviderUUID, err)
	}

	announcement := &network.DepositAnnouncement{
		DepositUUID:   deposit.UUID,
		Title:         provider.Name,
		Email:         provider.Email,
		ProviderURL:   provider.URL,
		PublisherName: provider.PublisherName,
		PublisherURL:  provider.PublisherURL,
		Issn:          provider.Issn,
		FetchURL:      depositor.fetchURL(sealedFile),
		Size:          info.Size(),
		ChecksumType:  constants.AlgSha1,
		ChecksumValue: digest,
		Volume:        deposit.Volume,
		Issue:         deposit.Issue,
		PubDate:       deposit.PubDate,
		License:       deposit.License,
	}
	statementURL, err := depositor.Client.CreateDeposit(announcement)
	if err != nil {
		return OutcomeFailure, err.Error()
	}
	deposit.DepositReceipt = statementURL
	depositor.Context.MessageLog.Info("deposit %s: announced container %d, statement at %s",
		deposit.UUID, container.ID, statementURL)
	return OutcomeSuccess, ""
}

// fetchURL is the public URL where the network can download the
// sealed container from this staging server.
func (depositor *Depositor) fetchURL(sealedFile string) string {
	base := depositor.Context.Config.ServiceBaseURL
	return fmt.Sprintf("%s/fetch/%s", base, filepath.Base(sealedFile))
}
