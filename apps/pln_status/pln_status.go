package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/workers"
)

// pln_status polls the preservation network's statement for each
// transmitted deposit and acknowledges the ones the LOCKSS boxes have
// agreed on.
func main() {
	opts := parseCommandLine()
	config, err := models.LoadConfigFile(opts.pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	defer _context.Close()

	checker := workers.NewStatusChecker(_context)
	runner := workers.NewStageRunner(_context, checker, config.StatusWorker.Workers)
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

	consumer, err := workers.CreateNsqConsumer(config, &config.StatusWorker)
	if err != nil {
		_context.MessageLog.Fatal(err.Error())
	}
	_context.MessageLog.Info("pln_status started")
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
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Report what would be polled without polling")
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
pln_status: Polls the preservation network for the state of each
transmitted deposit. A statement of agreement acknowledges the
deposit and finishes its pipeline; a failed statement moves it to the
deposit error state for an operator to look at.

Usage: pln_status -config=<path to staging config file> [-batch] [-dry-run] [-limit=N]

Param -config is required.
`
	fmt.Println(message)
}
