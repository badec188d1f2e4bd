// Package workers holds the pipeline stages that move deposits from
// submitted to acknowledged, plus the maintenance workers (queue
// filler, cleaner, health checker, whitelist sweep). Each stage can
// run as a batch over everything in its input state, or as an NSQ
// consumer processing one deposit per message.
package workers

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
)

// Outcome is a stage's verdict on one deposit.
type Outcome int

const (
	// OutcomeSuccess advances the deposit to the next pipeline state.
	OutcomeSuccess Outcome = iota

	// OutcomeFailure moves the deposit to the stage's error state and
	// records the message on its error log.
	OutcomeFailure

	// OutcomeSkip leaves the deposit where it is. A later run will
	// pick it up again.
	OutcomeSkip
)

// Stage is one step of the processing pipeline. A stage declares the
// state it consumes and judges deposits one at a time; the runner
// owns selection, concurrency and the state transition itself, so a
// stage never writes to the datastore directly.
type Stage interface {
	// Name identifies the stage in logs.
	Name() string

	// InputState is the deposit state this stage consumes.
	InputState() string

	// Process does the stage's work on one deposit. It may mutate the
	// deposit (content type, attempt counts, container assignment);
	// the runner persists the mutations along with the transition.
	// The message explains a failure or skip, and is empty on success.
	Process(deposit *models.Deposit) (Outcome, string)
}

// BatchPreprocessor is implemented by stages that need to veto an
// entire batch before any deposit is touched. The harvest stage uses
// it for its disk space preflight.
type BatchPreprocessor interface {
	PreprocessBatch(deposits []*models.Deposit) error
}

// StageRunner drives one Stage, either over a whole batch (Run) or
// one deposit per NSQ message (HandleMessage). Each deposit's
// transition is applied in a single datastore transaction, so a crash
// mid-run never leaves a deposit half-moved.
type StageRunner struct {
	Context *context.Context
	Stage   Stage

	// DryRun reports what would be processed without processing.
	DryRun bool

	// Limit bounds how many deposits one batch run will take, zero
	// meaning no limit.
	Limit int

	workers  int
	stop     chan struct{}
	stopOnce sync.Once
}

func NewStageRunner(_context *context.Context, stage Stage, workers int) *StageRunner {
	if workers < 1 {
		workers = 1
	}
	return &StageRunner{
		Context: _context,
		Stage:   stage,
		workers: workers,
		stop:    make(chan struct{}),
	}
}

// Stop tells a batch run to finish the deposits already being
// processed and take no more. Safe to call more than once.
func (runner *StageRunner) Stop() {
	runner.stopOnce.Do(func() { close(runner.stop) })
}

// Run processes every deposit currently in the stage's input state,
// oldest first, with the configured number of workers.
func (runner *StageRunner) Run() *models.WorkSummary {
	summary := models.NewWorkSummary()
	summary.Start()
	log := runner.Context.MessageLog

	deposits, err := runner.Context.Store.DepositsByState(runner.Stage.InputState())
	if err != nil {
		summary.AddError("cannot list deposits in state %s: %v",
			runner.Stage.InputState(), err)
		summary.ErrorIsFatal = true
		summary.Finish()
		return summary
	}
	if runner.Limit > 0 && len(deposits) > runner.Limit {
		deposits = deposits[:runner.Limit]
	}
	log.Info("%s: %d deposit(s) in state %s",
		runner.Stage.Name(), len(deposits), runner.Stage.InputState())

	if preprocessor, ok := runner.Stage.(BatchPreprocessor); ok && len(deposits) > 0 {
		if err := preprocessor.PreprocessBatch(deposits); err != nil {
			summary.AddError("%s: batch aborted: %v", runner.Stage.Name(), err)
			summary.ErrorIsFatal = true
			summary.Finish()
			log.Error(summary.FirstError())
			return summary
		}
	}

	if runner.DryRun {
		for _, deposit := range deposits {
			log.Info("%s: would process deposit %s (dry run)",
				runner.Stage.Name(), deposit.UUID)
		}
		summary.Finish()
		return summary
	}

	work := make(chan *models.Deposit)
	wg := &sync.WaitGroup{}
	summaryMutex := &sync.Mutex{}
	for i := 0; i < runner.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for deposit := range work {
				if err := runner.processDeposit(deposit); err != nil {
					summaryMutex.Lock()
					summary.AddError("deposit %s: %v", deposit.UUID, err)
					summaryMutex.Unlock()
				}
			}
		}()
	}

dispatch:
	for _, deposit := range deposits {
		select {
		case <-runner.stop:
			log.Warning("%s: stopping early, %d deposit(s) left for next run",
				runner.Stage.Name(), len(deposits))
			break dispatch
		case work <- deposit:
		}
	}
	close(work)
	wg.Wait()
	summary.Finish()
	return summary
}

// ProcessOne runs the stage on a single deposit by UUID. Used by the
// NSQ consumer path. A deposit that is missing or no longer in the
// stage's input state is logged and dropped, not retried: the queue
// filler will requeue it if it ever belongs here again.
func (runner *StageRunner) ProcessOne(depositUUID string) error {
	log := runner.Context.MessageLog
	deposit, err := runner.Context.Store.DepositByUUID(depositUUID)
	if err != nil {
		return err
	}
	if deposit == nil {
		log.Warning("%s: deposit %s is not in the datastore, dropping message",
			runner.Stage.Name(), depositUUID)
		return nil
	}
	if deposit.State != runner.Stage.InputState() {
		log.Info("%s: deposit %s is in state %s, not %s, dropping message",
			runner.Stage.Name(), deposit.UUID, deposit.State, runner.Stage.InputState())
		return nil
	}
	return runner.processDeposit(deposit)
}

// HandleMessage makes the runner an NSQ handler. Message bodies are
// bare deposit UUIDs.
func (runner *StageRunner) HandleMessage(message *nsq.Message) error {
	depositUUID := strings.TrimSpace(string(message.Body))
	if depositUUID == "" {
		runner.Context.MessageLog.Error("%s: dropping message with empty body",
			runner.Stage.Name())
		return nil
	}
	return runner.ProcessOne(depositUUID)
}

// processDeposit runs the stage on one deposit and persists the
// verdict. The stage's view of the deposit and the state transition
// are written in one transaction.
func (runner *StageRunner) processDeposit(deposit *models.Deposit) error {
	log := runner.Context.MessageLog
	outcome, message := runner.Stage.Process(deposit)

	err := runner.Context.Store.UpdateDeposit(deposit.UUID, func(stored *models.Deposit) error {
		*stored = *deposit
		switch outcome {
		case OutcomeSuccess:
			stored.SetState(nextState(runner.Stage.InputState()))
		case OutcomeFailure:
			stored.AddErrorLog("%s: %s", runner.Stage.Name(), message)
			stored.SetState(constants.ErrorStateFor[runner.Stage.InputState()])
		case OutcomeSkip:
			// Stays put. Mutations (attempt counts etc.) still land.
		}
		stored.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		runner.Context.IncrementFailed()
		return fmt.Errorf("cannot save deposit: %v", err)
	}

	switch outcome {
	case OutcomeSuccess:
		runner.Context.IncrementSucceeded()
		log.Info("%s: deposit %s -> %s",
			runner.Stage.Name(), deposit.UUID, nextState(runner.Stage.InputState()))
	case OutcomeFailure:
		runner.Context.IncrementFailed()
		log.Error("%s: deposit %s -> %s: %s",
			runner.Stage.Name(), deposit.UUID,
			constants.ErrorStateFor[runner.Stage.InputState()], message)
	case OutcomeSkip:
		log.Info("%s: deposit %s skipped: %s",
			runner.Stage.Name(), deposit.UUID, message)
	}
	return nil
}

// nextState returns the pipeline state after input.
func nextState(input string) string {
	for i, state := range constants.PipelineStates {
		if state == input && i+1 < len(constants.PipelineStates) {
			return constants.PipelineStates[i+1]
		}
	}
	return input
}

// CreateNsqConsumer creates and returns an NSQ consumer for a worker
// process.
func CreateNsqConsumer(config *models.Config, workerConfig *models.WorkerConfig) (*nsq.Consumer, error) {
	nsqConfig := nsq.NewConfig()
	nsqConfig.Set("max_in_flight", workerConfig.MaxInFlight)
	nsqConfig.Set("heartbeat_interval", workerConfig.HeartbeatInterval)
	nsqConfig.Set("read_timeout", workerConfig.ReadTimeout)
	nsqConfig.Set("write_timeout", workerConfig.WriteTimeout)
	nsqConfig.Set("msg_timeout", workerConfig.MessageTimeout)
	return nsq.NewConsumer(workerConfig.NsqTopic, workerConfig.NsqChannel, nsqConfig)
}
