package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/workers"
)

// pln_clean reclaims disk space: harvested payloads of acknowledged
// deposits, and sealed archival units whose members have all been
// acknowledged. Without -force it only reports what it would delete.
func main() {
	opts := parseCommandLine()
	config, err := models.LoadConfigFile(opts.pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	defer _context.Close()

	cleaner := workers.NewCleaner(_context, !opts.force)
	summary := cleaner.Run()
	if summary.HasErrors() {
		_context.MessageLog.Error(summary.AllErrorsAsString())
		os.Exit(1)
	}
}

type options struct {
	pathToConfigFile string
	force            bool
}

func parseCommandLine() options {
	opts := options{}
	flag.StringVar(&opts.pathToConfigFile, "config", "", "Path to staging config file")
	flag.BoolVar(&opts.force, "force", false, "Actually delete files; the default is a dry run")
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
pln_clean: Deletes files the pipeline no longer needs: harvested
payloads of acknowledged deposits, and sealed archival unit files
whose member deposits have all been acknowledged by the preservation
network. Deposit records are never deleted; the datastore is the
permanent record.

Usage: pln_clean -config=<path to staging config file> [-force]

Param -config is required. Without -force this is a dry run.
`
	fmt.Println(message)
}
