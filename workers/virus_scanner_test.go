package workers_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/scan"
	"github.com/westvault/staging/util/testutil"
	"github.com/westvault/staging/workers"
)

// cannedScanner returns fixed results without touching clamd.
type cannedScanner struct {
	result *scan.Result
	err    error
}

func (scanner *cannedScanner) Scan(path string) (*scan.Result, error) {
	return scanner.result, scanner.err
}

func TestVirusScannerClean(t *testing.T) {
	ctx := testutil.NewContext(t)
	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	deposit.SetState(constants.StatePayloadValidated)

	scanner := workers.NewVirusScanner(ctx)
	scanner.Scanner = &cannedScanner{result: &scan.Result{Infected: false}}
	outcome, _ := scanner.Process(deposit)
	assert.Equal(t, workers.OutcomeSuccess, outcome)
}

func TestVirusScannerInfected(t *testing.T) {
	ctx := testutil.NewContext(t)
	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	deposit.SetState(constants.StatePayloadValidated)

	scanner := workers.NewVirusScanner(ctx)
	scanner.Scanner = &cannedScanner{result: &scan.Result{
		Infected: true,
		Detections: []scan.Detection{
			{Path: "article.pdf", Description: "Eicar-Test-Signature"},
		},
	}}
	outcome, message := scanner.Process(deposit)
	assert.Equal(t, workers.OutcomeFailure, outcome)
	assert.Contains(t, message, "Eicar-Test-Signature")
}

func TestVirusScannerUnavailable(t *testing.T) {
	ctx := testutil.NewContext(t)
	deposit := testutil.RandomDeposit(testutil.RandomUUID())
	deposit.SetState(constants.StatePayloadValidated)

	// A scanner that can't run is transient: skip, don't fail.
	scanner := workers.NewVirusScanner(ctx)
	scanner.Scanner = &cannedScanner{err: fmt.Errorf("clamd is not running")}
	outcome, message := scanner.Process(deposit)
	assert.Equal(t, workers.OutcomeSkip, outcome)
	assert.Contains(t, message, "retry")
}
