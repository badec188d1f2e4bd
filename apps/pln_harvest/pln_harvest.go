package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/workers"
)

// pln_harvest downloads deposit payloads from provider sites into the
// local staging area. By default it consumes deposit UUIDs from NSQ;
// with -batch it processes everything currently in the submitted state
// and exits.
func main() {
	opts := parseCommandLine()
	config, err := models.LoadConfigFile(opts.pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	defer _context.Close()

	harvester := workers.NewHarvester(_context)
	runner := workers.NewStageRunner(_context, harvester, config.HarvestWorker.Workers)
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

	_context.MessageLog.Info("Connecting to NSQLookupd at %s", config.NsqLookupdAddress)
	consumer, err := workers.CreateNsqConsumer(config, &config.HarvestWorker)
	if err != nil {
		_context.MessageLog.Fatal(err.Error())
	}
	_context.MessageLog.Info("pln_harvest started")
	consumer.AddHandler(runner)
	consumer.ConnectToNSQLookupd(config.NsqLookupdAddress)

	// This reader blocks until we get an interrupt, so our program does not exit.
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
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Report what would be harvested without harvesting")
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
pln_harvest: Downloads deposit payloads from provider sites into the
staging area. Deposits that download cleanly move on to checksum
validation. A batch run preflights the declared sizes against free
disk space and refuses to start when the batch would not fit.

Usage: pln_harvest -config=<path to staging config file> [-batch] [-dry-run] [-limit=N]

Param -config is required.
`
	fmt.Println(message)
}
