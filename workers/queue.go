package workers

import (
	"time"

	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/network"
)

// DepositQueue copies deposit UUIDs into the NSQ topics their next
// stage listens on. It runs periodically (usually from cron) and is
// idempotent: a deposit already queued in its current state is not
// queued again, and a stage consumer double-checks the state before
// doing anything anyway.
type DepositQueue struct {
	Context   *context.Context
	NSQClient *network.NSQClient
}

func NewDepositQueue(_context *context.Context) *DepositQueue {
	return &DepositQueue{
		Context:   _context,
		NSQClient: network.NewNSQClient(_context.Config.NsqdHttpAddress),
	}
}

// Run walks the queueable states in pipeline order and pushes every
// unqueued deposit into the matching topic.
func (queue *DepositQueue) Run() *models.WorkSummary {
	summary := models.NewWorkSummary()
	summary.Start()
	for _, state := range constants.PipelineStates {
		topic, queueable := constants.TopicFor[state]
		if !queueable {
			continue
		}
		deposits, err := queue.Context.Store.DepositsByState(state)
		if err != nil {
			summary.AddError("cannot list deposits in state %s: %v", state, err)
			continue
		}
		for _, deposit := range deposits {
			if deposit.QueuedAt != nil && deposit.QueuedAt.After(deposit.StateChangedAt) {
				continue
			}
			if queue.addToNSQ(deposit, topic) {
				queue.markAsQueued(deposit, summary)
			} else {
				summary.AddError("cannot queue deposit %s to topic %s",
					deposit.UUID, topic)
			}
		}
	}
	summary.Finish()
	return summary
}

func (queue *DepositQueue) addToNSQ(deposit *models.Deposit, topic string) bool {
	err := queue.NSQClient.Enqueue(topic, deposit.UUID)
	if err != nil {
		queue.Context.MessageLog.Error("Error sending deposit %s to NSQ topic %s: %v",
			deposit.UUID, topic, err)
		return false
	}
	queue.Context.MessageLog.Info("Added deposit %s (%s) to NSQ topic %s",
		deposit.UUID, deposit.State, topic)
	return true
}

func (queue *DepositQueue) markAsQueued(deposit *models.Deposit, summary *models.WorkSummary) {
	utcNow := time.Now().UTC()
	err := queue.Context.Store.UpdateDeposit(deposit.UUID, func(stored *models.Deposit) error {
		stored.QueuedAt = &utcNow
		return nil
	})
	if err != nil {
		summary.AddError("error setting QueuedAt for deposit %s: %v", deposit.UUID, err)
	}
}
