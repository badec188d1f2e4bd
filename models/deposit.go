package models

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/westvault/staging/constants"
)

// Deposit is one submitted archival package and its processing record.
// Deposits are created by the SWORD controller when a provider submits
// an Atom entry, and are advanced through the pipeline states by the
// processing stages. The deposit record tracks everything the pipeline
// needs to harvest, validate and transmit the package, plus an
// append-only error log for operators.
type Deposit struct {
	// UUID is the deposit identifier the provider assigned in the
	// Atom entry's urn:uuid id. Stored upper-case.
	UUID string `json:"uuid"`

	// ProviderUUID identifies the provider that owns this deposit.
	ProviderUUID string `json:"provider_uuid"`

	// URL is the location we harvest the payload from.
	URL string `json:"url"`

	// Size is the payload size in bytes, as declared by the provider.
	// The actual size may differ slightly; see
	// constants.FileSizeTolerance.
	Size int64 `json:"size"`

	// ChecksumType is the digest algorithm the provider declared
	// (md5, sha1 or sha256).
	ChecksumType string `json:"checksum_type"`

	// ChecksumValue is the hex digest the provider declared for the
	// payload. Compared case-insensitively.
	ChecksumValue string `json:"checksum_value"`

	// ContentType is the payload media type, resolved during harvest
	// from the HTTP response (or libmagic when the response has none).
	ContentType string `json:"content_type"`

	// State is the deposit's position in the pipeline. One of the
	// constants.State* values.
	State string `json:"state"`

	// HarvestAttempts counts how many times the harvest stage has
	// tried to download this deposit. It never decreases. When it
	// passes the configured maximum the harvester skips the deposit
	// until an operator intervenes.
	HarvestAttempts int `json:"harvest_attempts"`

	// ErrorLog is an append-only list of human-readable problems
	// recorded against this deposit.
	ErrorLog []string `json:"error_log"`

	// AuContainerID is the archival unit this deposit was packed
	// into by the organize stage. Zero until organized.
	AuContainerID uint64 `json:"au_container_id"`

	// DepositReceipt is the URL a provider can poll for this
	// deposit's statement.
	DepositReceipt string `json:"deposit_receipt"`

	// Volume and Issue identify the serial content being preserved.
	// Pass-through metadata from the envelope.
	Volume string `json:"volume"`
	Issue  string `json:"issue"`

	// PubDate is the publication date string from the envelope.
	PubDate string `json:"pub_date"`

	// License is envelope license metadata, passed through to the
	// preservation network without validation.
	License map[string]string `json:"license"`

	// QueuedAt is when the queue filler last pushed this deposit
	// into an NSQ topic. Nil if never queued.
	QueuedAt *time.Time `json:"queued_at"`

	// StateChangedAt is when the deposit entered its current state.
	// Stage runs pick up deposits in state-entry order.
	StateChangedAt time.Time `json:"state_changed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDeposit creates a deposit in the submitted state.
func NewDeposit(providerUUID, depositUUID string) *Deposit {
	now := time.Now().UTC()
	return &Deposit{
		UUID:           strings.ToUpper(depositUUID),
		ProviderUUID:   strings.ToUpper(providerUUID),
		State:          constants.StateSubmitted,
		ErrorLog:       make([]string, 0),
		License:        make(map[string]string),
		CreatedAt:      now,
		UpdatedAt:      now,
		StateChangedAt: now,
	}
}

// SetState moves the deposit to a new state and stamps the
// transition time. Callers are responsible for only moving along the
// pipeline graph; the stage runner enforces that.
func (deposit *Deposit) SetState(state string) {
	deposit.State = state
	deposit.StateChangedAt = time.Now().UTC()
}

// AddErrorLog appends a formatted message to the deposit's error log.
// The log is append-only; nothing ever removes entries.
func (deposit *Deposit) AddErrorLog(format string, a ...interface{}) {
	deposit.ErrorLog = append(deposit.ErrorLog, fmt.Sprintf(format, a...))
}

// FileName returns the name the harvested payload is stored under in
// the provider's harvest directory: the deposit UUID plus whatever
// extension the source URL carries.
func (deposit *Deposit) FileName() string {
	ext := path.Ext(deposit.URL)
	if i := strings.IndexAny(ext, "?#"); i != -1 {
		ext = ext[:i]
	}
	return deposit.UUID + ext
}

// IsTerminal reports whether the deposit has reached a state the
// automated pipeline will never move it out of.
func (deposit *Deposit) IsTerminal() bool {
	if deposit.State == constants.StateAcknowledged {
		return true
	}
	for _, state := range constants.ErrorStates {
		if deposit.State == state {
			return true
		}
	}
	return false
}

// ChecksumMatches compares a computed hex digest against the declared
// checksum value, ignoring case.
func (deposit *Deposit) ChecksumMatches(digest string) bool {
	return strings.EqualFold(deposit.ChecksumValue, digest)
}
