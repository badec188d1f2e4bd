package models

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/op/go-logging"
	"github.com/westvault/staging/util/fileutil"
)

// WorkerConfig holds the knobs for one pipeline stage worker, both in
// batch mode and as an NSQ consumer.
type WorkerConfig struct {
	// Workers is the number of goroutines processing deposits
	// concurrently within one stage run.
	Workers int

	// NetworkConnections bounds the number of simultaneous outbound
	// connections a network-heavy stage (harvest, deposit) opens.
	NetworkConnections int

	// MaxInFlight is the number of NSQ messages this worker will
	// accept at once when running as a queue consumer.
	MaxInFlight int

	// HeartbeatInterval, ReadTimeout, WriteTimeout and
	// MessageTimeout are NSQ client settings, formatted like "10s"
	// or "1m".
	HeartbeatInterval string
	ReadTimeout       string
	WriteTimeout      string
	MessageTimeout    string

	// NsqTopic and NsqChannel are where this worker reads from when
	// running as a queue consumer.
	NsqTopic   string
	NsqChannel string
}

// ReplicaConfig describes the optional offsite replica store: an
// S3-compatible bucket that receives a copy of every sealed archival
// unit bag. Leave Endpoint empty to disable replication.
type ReplicaConfig struct {
	// Endpoint is the S3-compatible server, without protocol.
	// E.g. "s3.example.org". The client always uses https.
	Endpoint string

	// Bucket receives the sealed AU bags.
	Bucket string

	// AccessKeyEnv and SecretKeyEnv name the environment variables
	// holding the credentials. Credentials never appear in the
	// config file itself.
	AccessKeyEnv string
	SecretKeyEnv string
}

// Config is the staging server configuration, loaded from a JSON file
// named on every command line with -config.
type Config struct {
	// ActiveConfig is the path of the configuration file currently
	// in use.
	ActiveConfig string

	// BaseDir is the data directory. Harvested payloads, staged AU
	// bags and the Bolt database all live under it.
	BaseDir string

	// DbFile is the path of the Bolt database file. Relative paths
	// are resolved under BaseDir.
	DbFile string

	// LogDirectory is where process logs go. Each command writes
	// <command>.log and <command>.json there.
	LogDirectory string

	// LogLevel sets the minimum severity written to the message
	// log.
	LogLevel logging.Level

	// LogToStderr mirrors the message log to stderr, for running
	// commands by hand.
	LogToStderr bool

	// Accepting is the network's default answer for providers on
	// neither the allow list nor the deny list.
	Accepting bool

	// MaxHarvestAttempts is how many times the harvest stage will
	// try to download a deposit before skipping it on every
	// subsequent run.
	MaxHarvestAttempts int

	// MaxAuSize is the archival unit size threshold in bytes. The
	// organize stage closes the open container the first time its
	// aggregate size exceeds this.
	MaxAuSize int64

	// HarvestTimeout, PingTimeout and DepositTimeout bound the
	// outbound HTTP requests, formatted like "90s".
	HarvestTimeout string
	PingTimeout    string
	DepositTimeout string

	// DaysSilent is how long a provider may go without contact
	// before the health monitor notifies operators and pings it.
	DaysSilent int

	// MinVersion is the minimum provider software release the
	// whitelist sweep will auto-allow.
	MinVersion string

	// NotifyEmails lists the operators who hear about silent
	// providers.
	NotifyEmails []string

	// TermsOfUse is echoed in every service document.
	TermsOfUse []string

	// NetworkDefault, NetworkAccepting and NetworkOldVersion are the
	// status messages shown in the provider's plugin UI, chosen by
	// comparing the provider's reported release to MinVersion.
	NetworkDefault    string
	NetworkAccepting  string
	NetworkOldVersion string

	// ServiceAddress is the listen address for the SWORD server,
	// e.g. ":8080".
	ServiceAddress string

	// ServiceBaseURL is the public URL providers use to reach the
	// SWORD endpoints. Deposit receipts are built from it.
	ServiceBaseURL string

	// OperatorTokenSecretEnv names the environment variable holding
	// the HMAC secret for operator bearer tokens.
	OperatorTokenSecretEnv string

	// ClamdScanPath is the clamdscan executable used by the virus
	// scan stage.
	ClamdScanPath string

	// SwordServiceURL is the downstream preservation service's
	// SWORD endpoint (LOCKSS-O-Matic).
	SwordServiceURL string

	// SwordProviderUUID identifies this staging server to the
	// downstream service.
	SwordProviderUUID string

	// NsqdHttpAddress is the nsqd HTTP endpoint the queue filler
	// posts to, usually ending in :4151.
	NsqdHttpAddress string

	// NsqLookupdAddress is where stage consumers find nsqd.
	NsqLookupdAddress string

	// Replica configures the optional offsite copy of sealed AU
	// bags.
	Replica ReplicaConfig

	// Per-stage worker settings.
	HarvestWorker  WorkerConfig
	ValidateWorker WorkerConfig
	ScanWorker     WorkerConfig
	OrganizeWorker WorkerConfig
	DepositWorker  WorkerConfig
	StatusWorker   WorkerConfig
}

// LoadConfigFile reads and parses the JSON config file, expands
// tildes and makes the data paths absolute.
func LoadConfigFile(pathToConfigFile string) (*Config, error) {
	data, err := fileutil.ReadFile(pathToConfigFile)
	if err != nil {
		return nil, fmt.Errorf("error reading config file '%s': %v", pathToConfigFile, err)
	}
	config := &Config{}
	if err = json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing JSON from config file '%s': %v", pathToConfigFile, err)
	}
	config.ActiveConfig = pathToConfigFile
	config.ExpandFilePaths()
	return config, nil
}

// ExpandFilePaths expands tildes in the configured paths and anchors
// the Bolt database file under BaseDir when it's relative.
func (config *Config) ExpandFilePaths() {
	if expanded, err := fileutil.ExpandTilde(config.BaseDir); err == nil {
		config.BaseDir = expanded
	}
	if expanded, err := fileutil.ExpandTilde(config.LogDirectory); err == nil {
		config.LogDirectory = expanded
	}
	if expanded, err := fileutil.ExpandTilde(config.DbFile); err == nil {
		config.DbFile = expanded
	}
	if config.DbFile == "" {
		config.DbFile = filepath.Join(config.BaseDir, "staging.db")
	} else if !filepath.IsAbs(config.DbFile) {
		config.DbFile = filepath.Join(config.BaseDir, config.DbFile)
	}
}

// DurationValue parses a config duration like "90s" or "2m".
// Returns the fallback when the value is empty or malformed; a typo
// in a timeout should not take a worker down.
func DurationValue(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// AbsLogDirectory returns the absolute path of the log directory, or
// panics: without a usable log directory there is nowhere to report
// anything else.
func (config *Config) AbsLogDirectory() string {
	absLogDir, err := filepath.Abs(config.LogDirectory)
	if err != nil {
		panic(fmt.Sprintf("cannot get absolute path to log directory '%s'", config.LogDirectory))
	}
	return absLogDir
}
