//go:build !nomagic

// This requires the libmagic C library, which some deployment hosts
// won't have, so this file is not compiled with -tags=nomagic.
package platform

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/rakyll/magicmime"
)

// magicMime is the MimeMagic database. We want
// just one copy of this open at a time.
var magicMime *magicmime.Magic

// The underlying MagicMime C library sometimes fails or returns
// nonsense (unprintable characters) when accessed by multiple
// goroutines at once, so access is serialized with a mutex. The
// calls are fast; this is not a bottleneck.
var mutex = &sync.Mutex{}

var validMimeType = regexp.MustCompile(`^\w+/[-.\w]+$`)

// GuessMimeType identifies the media type of a harvested payload
// whose server sent no Content-Type header.
func GuessMimeType(absPath string) (mimeType string, err error) {
	// Open the Mime Magic DB only once.
	if magicMime == nil {
		magicMime, err = magicmime.New(magicmime.MAGIC_MIME_TYPE)
		if err != nil {
			return "", fmt.Errorf("error opening MimeMagic database: %v", err)
		}
	}

	// MagicMime occasionally returns an empty string or garbage, and
	// an invalid media type would poison the deposit record. Default
	// to the safe application/octet-stream and accept the guess only
	// when it looks legit.
	mimeType = "application/octet-stream"
	mutex.Lock()
	guessedType, _ := magicMime.TypeByFile(absPath)
	mutex.Unlock()
	if guessedType != "" && validMimeType.MatchString(guessedType) {
		mimeType = guessedType
	}
	return mimeType, nil
}
