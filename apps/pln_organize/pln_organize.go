package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/workers"
)

// pln_organize packs scanned payloads into archival unit containers
// and seals each container into a bag once it passes the configured
// size threshold. Containers are filled one at a time, so this stage
// runs with a single worker no matter what the config says.
func main() {
	opts := parseCommandLine()
	config, err := models.LoadConfigFile(opts.pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	defer _context.Close()

	organizer := workers.NewOrganizer(_context)
	runner := workers.NewStageRunner(_context, organizer, config.OrganizeWorker.Workers)
	runner.DryRun = opts.dryRun
	runner.Limit = opts.limit

	if opts.batch || opts.dryRun {
		summary := runner.Run()
		_context.LogStats()
		if summary.HasErrors() {
			_context.MessageLog.Error(summary.AllErrorsAsString())
			os.Exit(1)
		}
		return
	}

	consumer, err := workers.CreateNsqConsumer(config, &config.OrganizeWorker)
	if err != nil {
		_context.MessageLog.Fatal(err.Error())
	}
	_context.MessageLog.Info("pln_organize started")
	consumer.AddHandler(runner)
	consumer.ConnectToNSQLookupd(config.NsqLookupdAddress)
	<-consumer.StopChan
}

type options struct {
	pathToConfigFile string
	batch            bool
	dryRun           bool
	limit            int
}

func parseCommandLine() options {
	opts := options{}
	flag.StringVar(&opts.pathToConfigFile, "config", "", "Path to staging config file")
	flag.BoolVar(&opts.batch, "batch", false, "Process the current backlog and exit instead of consuming from NSQ")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Report what would be packed without packing")
	flag.IntVar(&opts.limit, "limit", 0, "Maximum deposits to process in one batch run (0 = no limit)")
	flag.Parse()
	if opts.pathToConfigFile == "" {
		printUsage()
		os.Exit(1)
	}
	return opts
}

// Tell the user about the program.
func printUsage() {
	message := `
pln_organize: Packs virus-checked payloads into archival unit
containers. When the open container's aggregate size passes MaxAuSize
it is closed, bagged, compressed, and (when a replica store is
configured) copied offsite. Sealed containers are what the deposit
stage announces to the preservation network.

Usage: pln_organize -config=<path to staging config file> [-batch] [-dry-run] [-limit=N]

Param -config is required.
`
	fmt.Println(message)
}
