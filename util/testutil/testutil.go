// Package testutil builds the throwaway contexts and randomized
// records the package tests share. Not imported by production code.
package testutil

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/icrowley/fake"
	uuid "github.com/satori/go.uuid"
	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/service"
	"github.com/westvault/staging/util/logger"
	"github.com/westvault/staging/util/storage"
)

// NewContext returns a Context backed by a temp directory datastore
// and a discarding logger. Everything it creates is cleaned up when
// the test finishes.
func NewContext(t *testing.T) *context.Context {
	t.Helper()
	baseDir := t.TempDir()
	store, err := storage.NewBoltDB(filepath.Join(baseDir, "staging.db"))
	if err != nil {
		t.Fatalf("cannot open test datastore: %v", err)
	}
	t.Cleanup(store.Close)
	config := &models.Config{
		BaseDir:            baseDir,
		LogDirectory:       baseDir,
		Accepting:          true,
		MaxHarvestAttempts: 3,
		MaxAuSize:          1024 * 1024,
		MinVersion:         "2.4.8.0",
		ServiceBaseURL:     "http://staging.test",
		NetworkDefault:     "The network is not accepting deposits at this time.",
		NetworkAccepting:   "The network is accepting deposits.",
		NetworkOldVersion:  "Your provider software is out of date.",
		TermsOfUse:         []string{"Content must be openly licensed."},
	}
	return &context.Context{
		Config:     config,
		MessageLog: logger.DiscardLogger("test"),
		JsonLog:    stdlog.New(io.Discard, "", 0),
		Store:      store,
		Paths:      service.NewPaths(baseDir),
	}
}

// RandomUUID returns an upper-cased v4 UUID, the way provider tokens
// and deposit ids are stored.
func RandomUUID() string {
	return strings.ToUpper(uuid.NewV4().String())
}

// RandomProvider returns a provider with plausible metadata.
func RandomProvider() *models.Provider {
	provider := models.NewProvider(RandomUUID(),
		fmt.Sprintf("http://%s", fake.DomainName()))
	provider.Name = fake.Company()
	provider.Email = fake.EmailAddress()
	provider.Issn = "1234-5678"
	provider.Version = "2.4.8.1"
	return provider
}

// RandomDeposit returns a submitted deposit for the provider.
func RandomDeposit(providerUUID string) *models.Deposit {
	deposit := models.NewDeposit(providerUUID, RandomUUID())
	deposit.URL = fmt.Sprintf("http://%s/pln/deposits/%s.zip",
		fake.DomainName(), strings.ToLower(deposit.UUID))
	deposit.Size = 4096
	deposit.ChecksumType = constants.AlgSha1
	deposit.ChecksumValue = fmt.Sprintf("%x", sha1.Sum([]byte(deposit.UUID)))
	return deposit
}

// WritePayload writes content to the deposit's harvest location and
// sets the deposit's size and checksum to match, so validation
// passes.
func WritePayload(t *testing.T, ctx *context.Context, deposit *models.Deposit, content []byte) string {
	t.Helper()
	dir := ctx.Paths.HarvestDir(deposit.ProviderUUID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("cannot create %s: %v", dir, err)
	}
	localPath := ctx.Paths.HarvestFile(deposit)
	if err := os.WriteFile(localPath, content, 0644); err != nil {
		t.Fatalf("cannot write %s: %v", localPath, err)
	}
	deposit.Size = int64(len(content))
	switch deposit.ChecksumType {
	case constants.AlgMd5:
		deposit.ChecksumValue = fmt.Sprintf("%x", md5.Sum(content))
	case constants.AlgSha256:
		deposit.ChecksumValue = fmt.Sprintf("%x", sha256.Sum256(content))
	default:
		deposit.ChecksumType = constants.AlgSha1
		deposit.ChecksumValue = fmt.Sprintf("%x", sha1.Sum(content))
	}
	return localPath
}
