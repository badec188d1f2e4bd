package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/sword"
)

// pln_server runs the SWORD protocol server: service document,
// deposit creation, statements, edits, and the fetch endpoint the
// downstream preservation network pulls sealed archival units from.
func main() {
	pathToConfigFile := parseCommandLine()
	config, err := models.LoadConfigFile(pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	defer _context.Close()

	handler := sword.NewHandler(_context)
	_context.MessageLog.Info("pln_server listening on %s", config.ServiceAddress)
	_context.MessageLog.Info("service base URL is %s", config.ServiceBaseURL)

	server := &http.Server{
		Addr:    config.ServiceAddress,
		Handler: handler.Router(),
	}
	if err := server.ListenAndServe(); err != nil {
		_context.MessageLog.Fatal(err.Error())
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
pln_server: Runs the SWORD staging server. Providers submit deposit
envelopes here, poll deposit statements, and resubmit corrected
content. The downstream preservation network fetches sealed archival
units from the /fetch endpoint.

Usage: pln_server -config=<path to staging config file>

Param -config is required.
`
	fmt.Println(message)
}
