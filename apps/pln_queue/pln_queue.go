package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/workers"
)

// pln_queue copies unqueued deposit UUIDs into the NSQ topics their
// next pipeline stage listens on. Run it from cron.
func main() {
	pathToConfigFile := parseCommandLine()
	config, err := models.LoadConfigFile(pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	defer _context.Close()

	queue := workers.NewDepositQueue(_context)
	summary := queue.Run()
	if summary.HasErrors() {
		_context.MessageLog.Error(summary.AllErrorsAsString())
		os.Exit(1)
	}
}

func parseCommandLine() (configFile string) {
	var pathToConfigFile string
	flag.StringVar(&pathToConfigFile, "config", "", "Path to staging config file")
	flag.Parse()
	if pathToConfigFile == "" {
		printUsage()
		os.Exit(1)
	}
	return pathToConfigFile
}

// Tell the user about the program.
func printUsage() {
	message := `
pln_queue: Queues deposits in NSQ. Any deposit that has not been
queued since it last changed state has its UUID copied into the NSQ
topic for its next pipeline stage. Topics are fixed per stage; see the
NsqTopic property of each worker section in the config file.

Usage: pln_queue -config=<path to staging config file>

Param -config is required.
`
	fmt.Println(message)
}
