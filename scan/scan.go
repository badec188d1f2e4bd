// Package scan wraps virus scanning of harvested payloads. The
// pipeline only knows the Scanner interface; the one real
// implementation shells out to clamdscan.
package scan

// Detection is one flagged file inside a scanned payload.
type Detection struct {
	// Path is the file the scanner flagged.
	Path string

	// Description is the scanner's name for what it found,
	// e.g. "Eicar-Test-Signature".
	Description string
}

// Result is the outcome of scanning one payload.
type Result struct {
	// Infected is true when the scanner found anything at all.
	Infected bool

	// Detections lists what was found. Empty on a clean scan.
	Detections []Detection
}

// Scanner scans one file (or directory tree) for malware. A non-nil
// error means the scan itself could not run; an infected payload is a
// successful scan with Infected set.
type Scanner interface {
	Scan(path string) (*Result, error)
}
