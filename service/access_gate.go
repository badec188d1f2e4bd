// Package service holds the small domain services the SWORD
// controller and the pipeline stages share: the access gate, the
// on-disk path layout and operator notification.
package service

import (
	"strings"

	"github.com/westvault/staging/models"
	"github.com/westvault/staging/util/storage"
)

// AccessGate decides whether a provider identity token may use the
// network. Allow beats deny beats the configured default, and an
// empty token is always refused.
type AccessGate struct {
	store              *storage.BoltDB
	acceptingByDefault bool
}

func NewAccessGate(store *storage.BoltDB, acceptingByDefault bool) *AccessGate {
	return &AccessGate{
		store:              store,
		acceptingByDefault: acceptingByDefault,
	}
}

// Allowed resolves the provider's access. The allow list is consulted
// first, so a provider on both lists is admitted.
func (gate *AccessGate) Allowed(providerUUID string) (bool, error) {
	providerUUID = strings.TrimSpace(providerUUID)
	if providerUUID == "" {
		return false, nil
	}
	allowed, err := gate.store.OnAccessList(models.ListAllow, providerUUID)
	if err != nil {
		return false, err
	}
	if allowed {
		return true, nil
	}
	denied, err := gate.store.OnAccessList(models.ListDeny, providerUUID)
	if err != nil {
		return false, err
	}
	if denied {
		return false, nil
	}
	return gate.acceptingByDefault, nil
}
