package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/workers"
)

// pln_deposit announces sealed archival units to the downstream
// preservation network. Deposits whose container is still filling are
// skipped until a later run.
func main() {
	opts := parseCommandLine()
	config, err := models.LoadConfigFile(opts.pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	defer _context.Close()

	depositor := workers.NewDepositor(_context)
	runner := workers.NewStageRunner(_context, depositor, config.DepositWorker.Workers)
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

	consumer, err := workers.CreateNsqConsumer(config, &config.DepositWorker)
	if err != nil {
		_context.MessageLog.Fatal(err.Error())
	}
	_context.MessageLog.Info("pln_deposit started")
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
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Report what would be announced without announcing")
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
pln_deposit: Announces sealed archival units to the preservation
network's SWORD endpoint (SwordServiceURL in the config). The network
fetches each unit back from this server's /fetch endpoint; the
statement URL it returns is stored for the status stage to poll.

Usage: pln_deposit -config=<path to staging config file> [-batch] [-dry-run] [-limit=N]

Param -config is required.
`
	fmt.Println(message)
}
