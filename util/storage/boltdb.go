// Package storage is the staging server's datastore: a Bolt
// key-value file holding providers, deposits, archival unit
// containers and the access lists. Records are gob-encoded, one
// bucket per record type. A single file keeps deployment trivial and
// gives us per-update transactions, which is all the pipeline needs:
// every mutation is scoped to one deposit, one provider or one
// container.
package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"sort"
	"strings"

	"github.com/boltdb/bolt"
	"github.com/westvault/staging/models"
)

const (
	providerBucket  = "providers"
	depositBucket   = "deposits"
	containerBucket = "containers"
	allowBucket     = "allowlist"
	denyBucket      = "denylist"
)

var allBuckets = []string{
	providerBucket,
	depositBucket,
	containerBucket,
	allowBucket,
	denyBucket,
}

// BoltDB wraps the bolt database file.
type BoltDB struct {
	db       *bolt.DB
	filePath string
}

// NewBoltDB opens the database at filePath, creating the file and the
// buckets if they don't exist yet.
func NewBoltDB(filePath string) (*BoltDB, error) {
	db, err := bolt.Open(filePath, 0644, nil)
	if err != nil {
		return nil, err
	}
	boltDB := &BoltDB{db: db, filePath: filePath}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("error creating bucket %s: %v", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return boltDB, nil
}

// FilePath returns the path of the database file.
func (boltDB *BoltDB) FilePath() string {
	return boltDB.filePath
}

// Close closes the underlying database.
func (boltDB *BoltDB) Close() {
	boltDB.db.Close()
}

func encode(value interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := gob.NewEncoder(buf).Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, value interface{}) error {
	return gob.NewDecoder(bytes.NewBuffer(data)).Decode(value)
}

// ---- Providers ----

// SaveProvider writes the provider record, keyed by its UUID.
func (boltDB *BoltDB) SaveProvider(provider *models.Provider) error {
	data, err := encode(provider)
	if err != nil {
		return err
	}
	return boltDB.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(providerBucket)).Put([]byte(provider.UUID), data)
	})
}

// ProviderByUUID returns the provider with the given UUID, or nil
// and no error when the UUID is unknown.
func (boltDB *BoltDB) ProviderByUUID(uuid string) (*models.Provider, error) {
	var provider *models.Provider
	err := boltDB.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket([]byte(providerBucket)).Get([]byte(strings.ToUpper(uuid)))
		if len(value) == 0 {
			return nil
		}
		provider = &models.Provider{}
		return decode(value, provider)
	})
	return provider, err
}

// Providers returns all provider records, ordered by creation time.
func (boltDB *BoltDB) Providers() ([]*models.Provider, error) {
	providers := make([]*models.Provider, 0)
	err := boltDB.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(providerBucket)).ForEach(func(k, v []byte) error {
			provider := &models.Provider{}
			if err := decode(v, provider); err != nil {
				return err
			}
			providers = append(providers, provider)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(providers, func(i, j int) bool {
		if providers[i].CreatedAt.Equal(providers[j].CreatedAt) {
			return providers[i].UUID < providers[j].UUID
		}
		return providers[i].CreatedAt.Before(providers[j].CreatedAt)
	})
	return providers, nil
}

// ---- Deposits ----

// SaveDeposit writes the deposit record, keyed by its UUID.
func (boltDB *BoltDB) SaveDeposit(deposit *models.Deposit) error {
	data, err := encode(deposit)
	if err != nil {
		return err
	}
	return boltDB.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(depositBucket)).Put([]byte(deposit.UUID), data)
	})
}

// DepositByUUID returns the deposit with the given UUID, or nil and
// no error when the UUID is unknown.
func (boltDB *BoltDB) DepositByUUID(uuid string) (*models.Deposit, error) {
	var deposit *models.Deposit
	err := boltDB.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket([]byte(depositBucket)).Get([]byte(strings.ToUpper(uuid)))
		if len(value) == 0 {
			return nil
		}
		deposit = &models.Deposit{}
		return decode(value, deposit)
	})
	return deposit, err
}

// Deposits returns every deposit record.
func (boltDB *BoltDB) Deposits() ([]*models.Deposit, error) {
	return boltDB.depositsWhere(func(*models.Deposit) bool { return true })
}

// DepositsByState returns all deposits currently in the given state,
// in the order they entered it. This is the stage runner's work list.
func (boltDB *BoltDB) DepositsByState(state string) ([]*models.Deposit, error) {
	return boltDB.depositsWhere(func(deposit *models.Deposit) bool {
		return deposit.State == state
	})
}

func (boltDB *BoltDB) depositsWhere(match func(*models.Deposit) bool) ([]*models.Deposit, error) {
	deposits := make([]*models.Deposit, 0)
	err := boltDB.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(depositBucket)).ForEach(func(k, v []byte) error {
			deposit := &models.Deposit{}
			if err := decode(v, deposit); err != nil {
				return err
			}
			if match(deposit) {
				deposits = append(deposits, deposit)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(deposits, func(i, j int) bool {
		if deposits[i].StateChangedAt.Equal(deposits[j].StateChangedAt) {
			return deposits[i].UUID < deposits[j].UUID
		}
		return deposits[i].StateChangedAt.Before(deposits[j].StateChangedAt)
	})
	return deposits, nil
}

// UpdateDeposit applies fn to the stored deposit and writes the
// result back in a single transaction. This is the unit of atomicity
// for stage transitions: a crash mid-update leaves the previous
// record intact. Returns an error if the deposit does not exist or
// fn fails.
func (boltDB *BoltDB) UpdateDeposit(uuid string, fn func(*models.Deposit) error) error {
	return boltDB.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(depositBucket))
		key := []byte(strings.ToUpper(uuid))
		value := bucket.Get(key)
		if len(value) == 0 {
			return fmt.Errorf("deposit %s not found", uuid)
		}
		deposit := &models.Deposit{}
		if err := decode(value, deposit); err != nil {
			return err
		}
		if err := fn(deposit); err != nil {
			return err
		}
		data, err := encode(deposit)
		if err != nil {
			return err
		}
		return bucket.Put(key, data)
	})
}

// ---- Archival unit containers ----

func containerKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// SaveContainer writes the container record, assigning a sequence ID
// on first save.
func (boltDB *BoltDB) SaveContainer(container *models.AuContainer) error {
	return boltDB.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(containerBucket))
		if container.ID == 0 {
			id, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			container.ID = id
		}
		data, err := encode(container)
		if err != nil {
			return err
		}
		return bucket.Put(containerKey(container.ID), data)
	})
}

// ContainerByID returns the container with the given ID, or nil and
// no error when it does not exist.
func (boltDB *BoltDB) ContainerByID(id uint64) (*models.AuContainer, error) {
	var container *models.AuContainer
	err := boltDB.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket([]byte(containerBucket)).Get(containerKey(id))
		if len(value) == 0 {
			return nil
		}
		container = &models.AuContainer{}
		return decode(value, container)
	})
	return container, err
}

// OpenContainer returns the single open archival unit container, or
// nil and no error when every container is closed (or none exist).
// The organize stage serializes access; the store itself does not
// guard against two writers both creating containers.
func (boltDB *BoltDB) OpenContainer() (*models.AuContainer, error) {
	var open *models.AuContainer
	err := boltDB.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(containerBucket)).ForEach(func(k, v []byte) error {
			container := &models.AuContainer{}
			if err := decode(v, container); err != nil {
				return err
			}
			if container.Open && open == nil {
				open = container
			}
			return nil
		})
	})
	return open, err
}

// Containers returns every archival unit container, oldest first.
func (boltDB *BoltDB) Containers() ([]*models.AuContainer, error) {
	containers := make([]*models.AuContainer, 0)
	err := boltDB.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(containerBucket)).ForEach(func(k, v []byte) error {
			container := &models.AuContainer{}
			if err := decode(v, container); err != nil {
				return err
			}
			containers = append(containers, container)
			return nil
		})
	})
	return containers, err
}

// ---- Access lists ----

func listBucket(kind string) (string, error) {
	switch kind {
	case models.ListAllow:
		return allowBucket, nil
	case models.ListDeny:
		return denyBucket, nil
	}
	return "", fmt.Errorf("unknown access list kind '%s'", kind)
}

// AddAccessEntry puts an entry on the allow or deny list.
func (boltDB *BoltDB) AddAccessEntry(kind string, entry *models.AccessListEntry) error {
	bucketName, err := listBucket(kind)
	if err != nil {
		return err
	}
	data, err := encode(entry)
	if err != nil {
		return err
	}
	return boltDB.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(entry.UUID), data)
	})
}

// RemoveAccessEntry deletes a provider's entry from a list. Removing
// an absent entry is not an error.
func (boltDB *BoltDB) RemoveAccessEntry(kind, uuid string) error {
	bucketName, err := listBucket(kind)
	if err != nil {
		return err
	}
	return boltDB.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(strings.ToUpper(uuid)))
	})
}

// OnAccessList reports whether the provider UUID has an entry on the
// given list.
func (boltDB *BoltDB) OnAccessList(kind, uuid string) (bool, error) {
	bucketName, err := listBucket(kind)
	if err != nil {
		return false, err
	}
	found := false
	err = boltDB.db.View(func(tx *bolt.Tx) error {
		found = len(tx.Bucket([]byte(bucketName)).Get([]byte(strings.ToUpper(uuid)))) > 0
		return nil
	})
	return found, err
}

// AccessEntries returns all entries on the given list.
func (boltDB *BoltDB) AccessEntries(kind string) ([]*models.AccessListEntry, error) {
	bucketName, err := listBucket(kind)
	if err != nil {
		return nil, err
	}
	entries := make([]*models.AccessListEntry, 0)
	err = boltDB.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			entry := &models.AccessListEntry{}
			if err := decode(v, entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}
