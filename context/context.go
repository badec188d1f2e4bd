package context

import (
	"fmt"
	stdlog "log"
	"os"
	"sync/atomic"

	"github.com/minio/minio-go"
	"github.com/op/go-logging"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/network"
	"github.com/westvault/staging/service"
	"github.com/westvault/staging/util/logger"
	"github.com/westvault/staging/util/storage"
)

/*
Context sets up the items common to all of the staging commands
(the SWORD server, the queue filler and the pipeline stage workers).
It also encapsulates some counters common to those commands.
*/
type Context struct {
	Config        *models.Config
	MessageLog    *logging.Logger
	JsonLog       *stdlog.Logger
	Store         *storage.BoltDB
	NSQClient     *network.NSQClient
	Paths         *service.Paths
	pathToLogFile string
	pathToJsonLog string
	succeeded     int64
	failed        int64
}

/*
NewContext creates and returns a new Context object. Because some
items are absolutely required by this object and the processes that
use it, this function exits if it gets an invalid config param from
the command line, or if it cannot set up some essential services,
such as logging or the datastore.

This object is meant to be used as a singleton within any one of the
staging commands.
*/
func NewContext(config *models.Config) (context *Context) {
	context = &Context{
		succeeded: int64(0),
		failed:    int64(0),
	}
	context.Config = config
	context.MessageLog, context.pathToLogFile = logger.InitLogger(config)
	context.JsonLog, context.pathToJsonLog = logger.InitJsonLogger(config)
	context.NSQClient = network.NewNSQClient(config.NsqdHttpAddress)
	context.Paths = service.NewPaths(config.BaseDir)
	context.initStore()
	return context
}

// Opens the Bolt datastore. Every command needs it; a store that
// won't open is fatal.
func (context *Context) initStore() {
	store, err := storage.NewBoltDB(context.Config.DbFile)
	if err != nil {
		message := fmt.Sprintf("Exiting. Cannot open datastore at %s: %v",
			context.Config.DbFile, err)
		fmt.Fprintln(os.Stderr, message)
		context.MessageLog.Fatal(message)
	}
	context.Store = store
}

// Close releases the datastore. Call it when the command exits.
func (context *Context) Close() {
	if context.Store != nil {
		context.Store.Close()
	}
}

// Succeeded returns the number of deposits that succeeded.
func (context *Context) Succeeded() int64 {
	return atomic.LoadInt64(&context.succeeded)
}

// Failed returns the number of deposits that failed.
func (context *Context) Failed() int64 {
	return atomic.LoadInt64(&context.failed)
}

// IncrementSucceeded increases the count of successfully processed
// deposits by one.
func (context *Context) IncrementSucceeded() int64 {
	return atomic.AddInt64(&context.succeeded, 1)
}

// IncrementFailed increases the count of unsuccessfully processed
// deposits by one.
func (context *Context) IncrementFailed() int64 {
	return atomic.AddInt64(&context.failed, 1)
}

// PathToLogFile returns the path to this process' log file.
func (context *Context) PathToLogFile() string {
	return context.pathToLogFile
}

// PathToJsonLog returns the path to this process' JSON log file.
func (context *Context) PathToJsonLog() string {
	return context.pathToJsonLog
}

// LogStats logs the number of deposits that have succeeded and failed.
func (context *Context) LogStats() {
	context.MessageLog.Info("**STATS** Succeeded: %d, Failed: %d",
		context.Succeeded(), context.Failed())
}

// GetReplicaClient returns a Minio client for the offsite replica
// store, or nil when replication is not configured. The endpoint
// omits the protocol; the client uses https.
func (context *Context) GetReplicaClient() (*minio.Client, error) {
	replica := context.Config.Replica
	if replica.Endpoint == "" {
		return nil, nil
	}
	return minio.New(replica.Endpoint,
		os.Getenv(replica.AccessKeyEnv),
		os.Getenv(replica.SecretKeyEnv),
		true)
}
