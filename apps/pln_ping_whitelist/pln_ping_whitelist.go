package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/workers"
)

// pln_ping_whitelist sweeps the registered providers and auto-allows
// the ones running a recent enough release with the terms of use
// accepted.
func main() {
	opts := parseCommandLine()
	config, err := models.LoadConfigFile(opts.pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if opts.minVersion != "" {
		config.MinVersion = opts.minVersion
	}
	_context := context.NewContext(config)
	defer _context.Close()

	whitelister := workers.NewPingWhitelister(_context, opts.all, opts.dryRun)
	summary := whitelister.Run()
	if summary.HasErrors() {
		_context.MessageLog.Error(summary.AllErrorsAsString())
		os.Exit(1)
	}
}

type options struct {
	pathToConfigFile string
	all              bool
	dryRun           bool
	minVersion       string
}

func parseCommandLine() options {
	opts := options{}
	flag.StringVar(&opts.pathToConfigFile, "config", "", "Path to staging config file")
	flag.BoolVar(&opts.all, "all", false, "Sweep every provider, including listed ones and past ping errors")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Report which providers would be pinged without pinging")
	flag.StringVar(&opts.minVersion, "min-version", "", "Override the configured MinVersion for this sweep")
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
pln_ping_whitelist: Pings every registered provider's gateway and
adds to the allow list each provider that reports a software release
of at least MinVersion with the network's terms of use accepted.
Providers already on the allow list, and providers whose last sweep
ended in a ping error, are skipped unless -all is given.

Usage: pln_ping_whitelist -config=<path to staging config file> [-all] [-dry-run] [-min-version=<release>]

Param -config is required.
`
	fmt.Println(message)
}
