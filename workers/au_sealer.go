package workers

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/APTrust/bagins"
	"github.com/minio/minio-go"
	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
)

// AuSealer turns a closed archival unit container into the artifact
// the preservation network actually fetches: a BagIt bag of the
// member payloads, tarred and gzipped. When an offsite replica store
// is configured, the sealed file is also uploaded there.
type AuSealer struct {
	Context *context.Context
}

func NewAuSealer(_context *context.Context) *AuSealer {
	return &AuSealer{Context: _context}
}

// Seal builds and saves the bag, tars it, and removes the working
// directories. The sealed tar.gz is the only thing left in staging.
func (sealer *AuSealer) Seal(container *models.AuContainer) error {
	paths := sealer.Context.Paths
	log := sealer.Context.MessageLog
	contentDir := paths.ContainerContentDir(container.ID)
	bagName := paths.ContainerName(container.ID)

	bag, err := bagins.NewBag(paths.StagingDir(), bagName, []string{"sha1"}, false)
	if err != nil {
		return fmt.Errorf("cannot create bag %s: %v", bagName, err)
	}
	entries, err := os.ReadDir(contentDir)
	if err != nil {
		return fmt.Errorf("cannot read %s: %v", contentDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		err = bag.AddFile(filepath.Join(contentDir, entry.Name()), entry.Name())
		if err != nil {
			return fmt.Errorf("cannot add %s to bag %s: %v", entry.Name(), bagName, err)
		}
	}
	if errs := bag.Save(); len(errs) > 0 {
		messages := make([]string, 0, len(errs))
		for _, saveErr := range errs {
			messages = append(messages, saveErr.Error())
		}
		return fmt.Errorf("cannot save bag %s: %s", bagName, strings.Join(messages, "; "))
	}

	sealedFile := paths.SealedContainerFile(container.ID)
	if err := tarDirectory(paths.ContainerDir(container.ID), sealedFile); err != nil {
		return fmt.Errorf("cannot tar bag %s: %v", bagName, err)
	}
	os.RemoveAll(contentDir)
	os.RemoveAll(paths.ContainerDir(container.ID))
	log.Info("sealed archival unit %s to %s", bagName, sealedFile)

	return sealer.replicate(bagName, sealedFile)
}

// replicate uploads the sealed file to the offsite replica bucket,
// when one is configured.
func (sealer *AuSealer) replicate(bagName, sealedFile string) error {
	client, err := sealer.Context.GetReplicaClient()
	if err != nil {
		return fmt.Errorf("cannot connect to replica store: %v", err)
	}
	if client == nil {
		return nil
	}
	bucket := sealer.Context.Config.Replica.Bucket
	objectName := filepath.Base(sealedFile)
	bytesSent, err := client.FPutObject(bucket, objectName, sealedFile,
		minio.PutObjectOptions{ContentType: "application/gzip"})
	if err != nil {
		return fmt.Errorf("cannot replicate %s to bucket %s: %v",
			objectName, bucket, err)
	}
	sealer.Context.MessageLog.Info("replicated %s (%d bytes) to bucket %s",
		objectName, bytesSent, bucket)
	return nil
}

// tarDirectory writes sourceDir into a gzipped tar file at destPath.
// Entry names are relative to sourceDir's parent, so the archive
// unpacks into a directory named after the bag.
func tarDirectory(sourceDir, destPath string) error {
	outFile, err := os.Create(destPath)
	if err != nil {
		return err
	}
	gzWriter := gzip.NewWriter(outFile)
	tarWriter := tar.NewWriter(gzWriter)

	parent := filepath.Dir(sourceDir)
	err = filepath.Walk(sourceDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		relPath, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(relPath)
		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(tarWriter, file)
		return err
	})

	if closeErr := tarWriter.Close(); err == nil {
		err = closeErr
	}
	if closeErr := gzWriter.Close(); err == nil {
		err = closeErr
	}
	if closeErr := outFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destPath)
	}
	return err
}
