package workers

import (
	"fmt"
	"time"

	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/network"
)

// StatusChecker polls the downstream network's SWORD statement for
// each transmitted deposit. When the LOCKSS boxes report agreement,
// the deposit moves from deposited to acknowledged and its pipeline
// is done. A statement that still reads inProgress leaves the deposit
// where it is for the next poll.
type StatusChecker struct {
	Context *context.Context
	Client  *network.SwordClient
}

func NewStatusChecker(_context *context.Context) *StatusChecker {
	timeout := models.DurationValue(_context.Config.DepositTimeout, 60*time.Second)
	return &StatusChecker{
		Context: _context,
		Client: network.NewSwordClient(
			_context.Config.SwordServiceURL,
			_context.Config.SwordProviderUUID,
			timeout),
	}
}

func (checker *StatusChecker) Name() string {
	return "status"
}

func (checker *StatusChecker) InputState() string {
	return constants.StateDeposited
}

func (checker *StatusChecker) Process(deposit *models.Deposit) (Outcome, string) {
	if deposit.DepositReceipt == "" {
		return OutcomeFailure, "deposit has no statement URL to poll"
	}
	term, err := checker.Client.Statement(deposit.DepositReceipt)
	if err != nil {
		return OutcomeSkip, fmt.Sprintf("cannot fetch statement, will retry: %v", err)
	}
	switch term {
	case constants.TermAgreement:
		checker.Context.MessageLog.Info("deposit %s: network reached agreement",
			deposit.UUID)
		return OutcomeSuccess, ""
	case constants.TermFailed:
		return OutcomeFailure, "network reports the deposit failed"
	default:
		return OutcomeSkip, fmt.Sprintf("network reports term '%s'", term)
	}
}
