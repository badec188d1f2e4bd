package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/workers"
)

// pln_scan runs each validated payload through clamd. Infected
// payloads are failed; a scanner that isn't running just postpones the
// deposit until the next run.
func main() {
	opts := parseCommandLine()
	config, err := models.LoadConfigFile(opts.pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	defer _context.Close()

	scanner := workers.NewVirusScanner(_context)
	runner := workers.NewStageRunner(_context, scanner, config.ScanWorker.Workers)
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

	consumer, err := workers.CreateNsqConsumer(config, &config.ScanWorker)
	if err != nil {
		_context.MessageLog.Fatal(err.Error())
	}
	_context.MessageLog.Info("pln_scan started")
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
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Report what would be scanned without scanning")
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
pln_scan: Scans validated payloads for viruses with clamdscan. Clean
payloads move on to archival unit packing. The clamdscan executable is
named by the ClamdScanPath config property and clamd must be running.

Usage: pln_scan -config=<path to staging config file> [-batch] [-dry-run] [-limit=N]

Param -config is required.
`
	fmt.Println(message)
}
