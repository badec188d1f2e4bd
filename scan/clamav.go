package scan

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// clamdscan exit codes, per the man page.
const (
	clamExitClean    = 0
	clamExitInfected = 1
)

// ClamAV scans files by running clamdscan against the local clamd
// daemon. The daemon does the heavy lifting; the subprocess only
// passes the file descriptor and reports.
type ClamAV struct {
	scanPath string
}

// NewClamAV returns a scanner that runs the clamdscan executable at
// scanPath, usually "/usr/bin/clamdscan".
func NewClamAV(scanPath string) *ClamAV {
	return &ClamAV{scanPath: scanPath}
}

// Scan runs clamdscan on the given path. Exit code 0 is clean, 1 is
// infected, anything else means the scan could not run and comes back
// as an error.
func (clam *ClamAV) Scan(path string) (*Result, error) {
	cmd := exec.Command(clam.scanPath, "--no-summary", "--fdpass", path)
	output := &bytes.Buffer{}
	cmd.Stdout = output
	cmd.Stderr = output

	err := cmd.Run()
	if err == nil {
		return &Result{Infected: false}, nil
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return nil, fmt.Errorf("cannot run %s: %v", clam.scanPath, err)
	}
	if exitErr.ExitCode() != clamExitInfected {
		return nil, fmt.Errorf("%s exited with code %d: %s",
			clam.scanPath, exitErr.ExitCode(), strings.TrimSpace(output.String()))
	}
	return &Result{
		Infected:   true,
		Detections: ParseClamOutput(output.String()),
	}, nil
}

// ParseClamOutput extracts detections from clamdscan output. Infected
// files are reported one per line as "<path>: <signature> FOUND".
func ParseClamOutput(output string) []Detection {
	detections := make([]Detection, 0)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasSuffix(line, " FOUND") {
			continue
		}
		line = strings.TrimSuffix(line, " FOUND")
		colon := strings.LastIndex(line, ": ")
		if colon == -1 {
			continue
		}
		detections = append(detections, Detection{
			Path:        line[:colon],
			Description: line[colon+2:],
		})
	}
	return detections
}
