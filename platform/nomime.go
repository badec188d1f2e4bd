//go:build nomagic

// Stub for GuessMimeType, compiled with -tags=nomagic on hosts
// without the libmagic C library. Deposits harvested there keep the
// generic media type.
package platform

func GuessMimeType(absPath string) (mimeType string, err error) {
	return "application/octet-stream", nil
}
