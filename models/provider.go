package models

import (
	"strings"
	"time"

	"github.com/westvault/staging/constants"
)

// Provider is a registered content source: a journal platform or other
// publisher site permitted to submit deposits to the network. A record
// is created the first time an unknown UUID contacts the SWORD
// endpoints, and refreshed on every successful contact after that.
type Provider struct {
	// UUID is the provider's identity token. Immutable once
	// assigned. Stored upper-case.
	UUID string `json:"uuid"`

	// Name is the provider's self-reported title. "unknown" until
	// the provider submits an envelope that names it.
	Name string `json:"name"`

	// URL is the provider's self-reported site URL.
	URL string `json:"url"`

	// Email is the technical contact from the deposit envelope.
	Email string `json:"email"`

	PublisherName string `json:"publisher_name"`
	PublisherURL  string `json:"publisher_url"`

	// Issn is the collection identifier for serial content.
	Issn string `json:"issn"`

	// Version is the software release the provider reported in its
	// last ping response. Used by the whitelist sweep.
	Version string `json:"version"`

	// TermsAccepted records whether the provider affirmed the
	// network's terms of use in its last ping response.
	TermsAccepted bool `json:"terms_accepted"`

	// Contacted is the last time the provider successfully talked
	// to us (or we to it).
	Contacted time.Time `json:"contacted"`

	// Notified is the last time the health monitor told operators
	// this provider had gone silent.
	Notified time.Time `json:"notified"`

	// Status is one of the constants.Status* health values.
	Status string `json:"status"`

	CreatedAt time.Time `json:"created_at"`
}

// NewProvider creates a provider record for a UUID we have not seen
// before. The placeholder fields are filled in when the provider
// submits its first envelope.
func NewProvider(uuid, url string) *Provider {
	now := time.Now().UTC()
	return &Provider{
		UUID:      strings.ToUpper(uuid),
		Name:      "unknown",
		URL:       url,
		Email:     "unknown@unknown.com",
		Issn:      "unknown",
		Status:    constants.StatusNew,
		Contacted: now,
		CreatedAt: now,
	}
}

// Touch records a successful contact. Providers stay in StatusNew
// until they complete a first deposit cycle; after that any contact
// marks them healthy.
func (provider *Provider) Touch() {
	provider.Contacted = time.Now().UTC()
	if provider.Status != constants.StatusNew {
		provider.Status = constants.StatusHealthy
	}
}

// GatewayURL is the provider endpoint the health monitor pings: the
// PLN plugin gateway under the provider's site URL.
func (provider *Provider) GatewayURL() string {
	return strings.TrimSuffix(provider.URL, "/") + "/gateway/pln"
}

// SilentSince reports whether the provider has not been in contact
// since the cutoff.
func (provider *Provider) SilentSince(cutoff time.Time) bool {
	return provider.Contacted.Before(cutoff)
}
