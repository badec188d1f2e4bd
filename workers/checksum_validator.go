package workers

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
)

// ChecksumValidator verifies a harvested payload against the digest
// the provider declared in its envelope. It moves deposits from
// harvested to payload-validated. A mismatch is final: the file we
// got is not the file the provider described, and re-reading it won't
// change that.
type ChecksumValidator struct {
	Context *context.Context
}

func NewChecksumValidator(_context *context.Context) *ChecksumValidator {
	return &ChecksumValidator{Context: _context}
}

func (validator *ChecksumValidator) Name() string {
	return "validate"
}

func (validator *ChecksumValidator) InputState() string {
	return constants.StateHarvested
}

func (validator *ChecksumValidator) Process(deposit *models.Deposit) (Outcome, string) {
	localPath := validator.Context.Paths.HarvestFile(deposit)
	digest, err := fileDigest(localPath, deposit.ChecksumType)
	if err != nil {
		return OutcomeFailure, err.Error()
	}
	if !deposit.ChecksumMatches(digest) {
		return OutcomeFailure, fmt.Sprintf(
			"%s digest %s does not match declared value %s",
			deposit.ChecksumType, digest, deposit.ChecksumValue)
	}
	validator.Context.MessageLog.Info("deposit %s: %s checksum verified",
		deposit.UUID, deposit.ChecksumType)
	return OutcomeSuccess, ""
}

// fileDigest streams the file through the named hash and returns the
// hex digest.
func fileDigest(path, algorithm string) (string, error) {
	var hasher hash.Hash
	switch algorithm {
	case constants.AlgMd5:
		hasher = md5.New()
	case constants.AlgSha1:
		hasher = sha1.New()
	case constants.AlgSha256:
		hasher = sha256.New()
	default:
		return "", fmt.Errorf("unsupported checksum algorithm '%s'", algorithm)
	}
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot open %s: %v", path, err)
	}
	defer file.Close()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("error reading %s: %v", path, err)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}
