package workers

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/util/fileutil"
)

// Organizer packs virus-checked deposits into archival unit
// containers. It moves deposits from virus-checked to organized.
//
// There is at most one open container at a time. Deposits are
// appended to it until its aggregate size passes the configured
// maximum; then it is closed, its bag is built and sealed, and the
// next deposit starts a fresh container. Container bookkeeping is
// serialized with a mutex, so running the organizer with multiple
// workers is safe but won't gain much.
type Organizer struct {
	Context   *context.Context
	Sealer    *AuSealer
	maxAuSize int64
	mutex     sync.Mutex
}

func NewOrganizer(_context *context.Context) *Organizer {
	return &Organizer{
		Context:   _context,
		Sealer:    NewAuSealer(_context),
		maxAuSize: _context.Config.MaxAuSize,
	}
}

func (organizer *Organizer) Name() string {
	return "organize"
}

func (organizer *Organizer) InputState() string {
	return constants.StateVirusChecked
}

func (organizer *Organizer) Process(deposit *models.Deposit) (Outcome, string) {
	organizer.mutex.Lock()
	defer organizer.mutex.Unlock()

	store := organizer.Context.Store
	container, err := store.OpenContainer()
	if err != nil {
		return OutcomeFailure, fmt.Sprintf("cannot look up open container: %v", err)
	}
	if container == nil {
		container = models.NewAuContainer()
		if err := store.SaveContainer(container); err != nil {
			return OutcomeFailure, fmt.Sprintf("cannot create container: %v", err)
		}
		organizer.Context.MessageLog.Info("opened archival unit container %d", container.ID)
	}

	contentDir := organizer.Context.Paths.ContainerContentDir(container.ID)
	if err := fileutil.MkdirAll(contentDir); err != nil {
		return OutcomeFailure, fmt.Sprintf("cannot create %s: %v", contentDir, err)
	}
	src := organizer.Context.Paths.HarvestFile(deposit)
	dst := filepath.Join(contentDir, deposit.FileName())
	if _, err := fileutil.CopyFile(src, dst); err != nil {
		return OutcomeFailure, fmt.Sprintf("cannot copy payload into container: %v", err)
	}

	container.AddDeposit(deposit)
	deposit.AuContainerID = container.ID

	if container.Size > organizer.maxAuSize {
		container.Close()
		if err := store.SaveContainer(container); err != nil {
			return OutcomeFailure, fmt.Sprintf("cannot close container %d: %v",
				container.ID, err)
		}
		organizer.Context.MessageLog.Info(
			"closed archival unit container %d at %d bytes with %d deposit(s)",
			container.ID, container.Size, len(container.DepositUUIDs))
		if err := organizer.Sealer.Seal(container); err != nil {
			// The container stays closed with its members intact. The
			// operator rebuilds the bag from the content directory.
			organizer.Context.MessageLog.Error("cannot seal container %d: %v",
				container.ID, err)
		}
	} else if err := store.SaveContainer(container); err != nil {
		return OutcomeFailure, fmt.Sprintf("cannot save container %d: %v",
			container.ID, err)
	}
	return OutcomeSuccess, ""
}
