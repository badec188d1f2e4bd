package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/workers"
)

// pln_run_all runs every pipeline stage once, in order, without NSQ.
// Useful for small installations running the whole pipeline from cron,
// and for working a backlog through by hand.
func main() {
	opts := parseCommandLine()
	config, err := models.LoadConfigFile(opts.pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	defer _context.Close()

	stages := []struct {
		stage   workers.Stage
		workers int
	}{
		{workers.NewHarvester(_context), config.HarvestWorker.Workers},
		{workers.NewChecksumValidator(_context), config.ValidateWorker.Workers},
		{workers.NewVirusScanner(_context), config.ScanWorker.Workers},
		{workers.NewOrganizer(_context), config.OrganizeWorker.Workers},
		{workers.NewDepositor(_context), config.DepositWorker.Workers},
		{workers.NewStatusChecker(_context), config.StatusWorker.Workers},
	}

	failed := false
	for _, entry := range stages {
		runner := workers.NewStageRunner(_context, entry.stage, entry.workers)
		runner.DryRun = opts.dryRun
		runner.Limit = opts.limit
		summary := runner.Run()
		if summary.HasErrors() {
			_context.MessageLog.Error("%s: %s", entry.stage.Name(),
				summary.AllErrorsAsString())
			failed = true
		}
	}
	_context.LogStats()
	if failed {
		os.Exit(1)
	}
}

type options struct {
	pathToConfigFile string
	dryRun           bool
	limit            int
}

func parseCommandLine() options {
	opts := options{}
	flag.StringVar(&opts.pathToConfigFile, "config", "", "Path to staging config file")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Report what each stage would process without processing")
	flag.IntVar(&opts.limit, "limit", 0, "Maximum deposits per stage in this run (0 = no limit)")
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
pln_run_all: Runs every pipeline stage once, in pipeline order:
harvest, validate, scan, organize, deposit, status. A deposit
submitted before the run can move through the entire pipeline in a
single invocation. Stage errors are reported but do not stop later
stages.

Usage: pln_run_all -config=<path to staging config file> [-dry-run] [-limit=N]

Param -config is required.
`
	fmt.Println(message)
}
