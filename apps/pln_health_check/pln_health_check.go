package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/service"
	"github.com/westvault/staging/workers"
)

// pln_health_check pings providers that have gone silent and notifies
// operators about the ones that don't answer. Run it daily from cron.
func main() {
	opts := parseCommandLine()
	config, err := models.LoadConfigFile(opts.pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	defer _context.Close()

	notifier := service.NewLogNotifier(_context.MessageLog, config.NotifyEmails)
	checker := workers.NewHealthChecker(_context, notifier, opts.dryRun)
	summary := checker.Run()
	if summary.HasErrors() {
		_context.MessageLog.Error(summary.AllErrorsAsString())
		os.Exit(1)
	}
}

type options struct {
	pathToConfigFile string
	dryRun           bool
}

func parseCommandLine() options {
	opts := options{}
	flag.StringVar(&opts.pathToConfigFile, "config", "", "Path to staging config file")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Report which providers would be pinged without pinging")
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
pln_health_check: Pings the gateway of every provider that has been
out of contact for more than DaysSilent days. Providers that answer
are marked healthy and their reported release and terms recorded;
providers that don't are marked unhealthy, and operators are notified
once per silence.

Usage: pln_health_check -config=<path to staging config file> [-dry-run]

Param -config is required.
`
	fmt.Println(message)
}
