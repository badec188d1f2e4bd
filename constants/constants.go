// Common vars and constants, shared by many parts of the staging server.
package constants

// Deposit states, in the order deposits normally move through them.
// A deposit is created in StateSubmitted by the SWORD controller and
// is advanced one state at a time by the processing stages. Each stage
// has a paired error state; error states are terminal until an operator
// intervenes or the provider resubmits.
const (
	StateSubmitted        = "submitted"
	StateHarvested        = "harvested"
	StatePayloadValidated = "payload-validated"
	StateVirusChecked     = "virus-checked"
	StateOrganized        = "organized"
	StateDeposited        = "deposited"
	StateAcknowledged     = "acknowledged"

	StateHarvestError  = "harvest-error"
	StatePayloadError  = "payload-error"
	StateVirusError    = "virus-error"
	StateOrganizeError = "organize-error"
	StateDepositError  = "deposit-error"
)

// PipelineStates lists the normal (non-error) states in pipeline order.
var PipelineStates = []string{
	StateSubmitted,
	StateHarvested,
	StatePayloadValidated,
	StateVirusChecked,
	StateOrganized,
	StateDeposited,
	StateAcknowledged,
}

// ErrorStates lists the terminal error states.
var ErrorStates = []string{
	StateHarvestError,
	StatePayloadError,
	StateVirusError,
	StateOrganizeError,
	StateDepositError,
}

// ErrorStateFor maps each stage input state to the error state the
// stage writes on failure. The status check stage shares the deposit
// error state: a deposit the network reports as failed went wrong in
// transmission.
var ErrorStateFor = map[string]string{
	StateSubmitted:        StateHarvestError,
	StateHarvested:        StatePayloadError,
	StatePayloadValidated: StateVirusError,
	StateVirusChecked:     StateOrganizeError,
	StateOrganized:        StateDepositError,
	StateDeposited:        StateDepositError,
}

// Provider health statuses. A provider starts as StatusNew on first
// contact and moves between healthy/unhealthy/ping-error as the health
// monitor hears from it (or doesn't).
const (
	StatusNew       = "new"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusPingError = "ping-error"
)

var ProviderStatuses = []string{
	StatusNew,
	StatusHealthy,
	StatusUnhealthy,
	StatusPingError,
}

// Checksum algorithms providers may declare in a deposit envelope.
// Envelope values are matched case-insensitively, with or without a
// dash ("SHA-1" and "sha1" both mean AlgSha1).
const (
	AlgMd5    = "md5"
	AlgSha1   = "sha1"
	AlgSha256 = "sha256"
)

var ChecksumAlgorithms = []string{AlgMd5, AlgSha1, AlgSha256}

// FileSizeTolerance is the maximum relative difference allowed between
// the payload size declared in the deposit envelope and the size the
// provider's server reports via HTTP HEAD. Differences beyond the
// tolerance are recorded on the deposit's error log as a warning, but
// do not block the harvest: provider size estimates are unreliable.
// The tolerance is 0.08 = 8%.
const FileSizeTolerance = 0.08

// MinFreeSpaceRatio is the fraction of the harvest volume that must
// remain free after downloading an entire harvest batch. If the batch
// would leave less than this, the whole run aborts before any fetch.
const MinFreeSpaceRatio = 0.10

// HarvestChunkSize is the buffer size for streaming deposit payloads
// to disk. 64k keeps memory bounded regardless of payload size.
const HarvestChunkSize = 64 * 1024

// UserAgent identifies this staging server to provider sites.
const UserAgent = "WestVaultPlnBot 1.0"

// Downstream term states reported by the preservation service for a
// transmitted deposit. TermAgreement means the LOCKSS boxes reached
// agreement on the content and the deposit is preserved.
const (
	TermInProgress = "inProgress"
	TermAgreement  = "agreement"
	TermFailed     = "failed"
)

// NSQ topic names, one per pipeline stage. The queue filler copies
// deposit UUIDs into the topic matching the deposit's current state.
const (
	TopicHarvest  = "harvest_topic"
	TopicValidate = "validate_topic"
	TopicScan     = "scan_topic"
	TopicOrganize = "organize_topic"
	TopicDeposit  = "deposit_topic"
	TopicStatus   = "status_topic"
)

// TopicFor maps a deposit state to the NSQ topic its next stage
// listens on. States with no entry are not queueable.
var TopicFor = map[string]string{
	StateSubmitted:        TopicHarvest,
	StateHarvested:        TopicValidate,
	StatePayloadValidated: TopicScan,
	StateVirusChecked:     TopicOrganize,
	StateOrganized:        TopicDeposit,
	StateDeposited:        TopicStatus,
}
