package workers

import (
	"fmt"
	"strings"

	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/scan"
)

// VirusScanner runs each validated payload past the virus scanner
// before it can be packed into an archival unit. It moves deposits
// from payload-validated to virus-checked.
//
// A scanner that cannot run (daemon down, socket refused) is a
// transient condition; those deposits are skipped and retried on the
// next run. A detection is final.
type VirusScanner struct {
	Context *context.Context
	Scanner scan.Scanner
}

func NewVirusScanner(_context *context.Context) *VirusScanner {
	return &VirusScanner{
		Context: _context,
		Scanner: scan.NewClamAV(_context.Config.ClamdScanPath),
	}
}

func (scanner *VirusScanner) Name() string {
	return "scan"
}

func (scanner *VirusScanner) InputState() string {
	return constants.StatePayloadValidated
}

func (scanner *VirusScanner) Process(deposit *models.Deposit) (Outcome, string) {
	localPath := scanner.Context.Paths.HarvestFile(deposit)
	result, err := scanner.Scanner.Scan(localPath)
	if err != nil {
		return OutcomeSkip, fmt.Sprintf("scanner unavailable, will retry: %v", err)
	}
	if result.Infected {
		names := make([]string, 0, len(result.Detections))
		for _, detection := range result.Detections {
			names = append(names, detection.Description)
		}
		return OutcomeFailure, fmt.Sprintf("infected payload: %s",
			strings.Join(names, ", "))
	}
	scanner.Context.MessageLog.Info("deposit %s: payload is clean", deposit.UUID)
	return OutcomeSuccess, ""
}
