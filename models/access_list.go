package models

import (
	"strings"
	"time"
)

// Access list kinds. A provider UUID may appear on the allow list,
// the deny list, or neither; the access gate resolves the precedence.
const (
	ListAllow = "allow"
	ListDeny  = "deny"
)

// AccessListEntry records one allow- or deny-list decision about a
// provider. Entries are immutable once created; removing a provider
// from a list deletes the entry.
type AccessListEntry struct {
	// UUID is the provider identity token the entry applies to.
	// Stored upper-case.
	UUID string `json:"uuid"`

	// Comment is a free-text justification: who listed the provider
	// and why.
	Comment string `json:"comment"`

	CreatedAt time.Time `json:"created_at"`
}

// NewAccessListEntry builds an entry for the given provider UUID.
func NewAccessListEntry(uuid, comment string) *AccessListEntry {
	return &AccessListEntry{
		UUID:      strings.ToUpper(uuid),
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}
}
