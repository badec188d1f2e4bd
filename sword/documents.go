// Package sword is the provider-facing protocol surface: a SWORD 2.0
// style HTTP service through which providers discover the network,
// submit deposit envelopes, poll their deposits' progress and
// resubmit corrected content. It also serves sealed archival units to
// the downstream preservation network.
package sword

import (
	"encoding/xml"

	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/models"
)

// SWORD XML namespaces, beyond the Atom and PLN ones in models.
const (
	SwordNamespace = "http://purl.org/net/sword/terms/"
	LomNamespace   = "http://lockssomatic.info/SWORD2"
)

// ServiceDocument tells a provider what this network accepts: the
// collection IRI to post to, the checksum types we verify, the upload
// ceiling and the terms of use. The onBehalfOf provider's standing
// decides the accepting flag and message.
type ServiceDocument struct {
	XMLName            xml.Name  `xml:"service"`
	SwordNs            string    `xml:"xmlns:sword,attr"`
	AtomNs             string    `xml:"xmlns:atom,attr"`
	LomNs              string    `xml:"xmlns:lom,attr"`
	PlnNs              string    `xml:"xmlns:pkp,attr"`
	Version            string    `xml:"sword:version"`
	MaxUploadSize      int64     `xml:"sword:maxUploadSize"`
	UploadChecksumType string    `xml:"lom:uploadChecksumType"`
	Workspace          Workspace `xml:"workspace"`
}

type Workspace struct {
	Title      string     `xml:"atom:title"`
	Collection Collection `xml:"collection"`
}

type Collection struct {
	Href       string   `xml:"href,attr"`
	Title      string   `xml:"atom:title"`
	Accept     string   `xml:"accept"`
	Mediation  bool     `xml:"sword:mediation"`
	Accepting  Flag     `xml:"pkp:pln_accepting"`
	TermsOfUse []string `xml:"pkp:terms_of_use>pkp:terms"`
}

// Flag is a yes/no element with a human-readable message the
// provider's plugin shows its operators.
type Flag struct {
	IsAccepting string `xml:"is_accepting,attr"`
	Message     string `xml:",chardata"`
}

// NewServiceDocument fills the static parts of a service document.
func NewServiceDocument(colIri string, maxUploadSize int64, termsOfUse []string) *ServiceDocument {
	return &ServiceDocument{
		SwordNs:            SwordNamespace,
		AtomNs:             models.AtomNamespace,
		LomNs:              LomNamespace,
		PlnNs:              models.PlnNamespace,
		Version:            "2.0",
		MaxUploadSize:      maxUploadSize,
		UploadChecksumType: "SHA-1 SHA-256 MD5",
		Workspace: Workspace{
			Title: "WestVault Preservation Network",
			Collection: Collection{
				Href:       colIri,
				Title:      "WestVault deposit staging",
				Accept:     "application/atom+xml;type=entry",
				Mediation:  true,
				TermsOfUse: termsOfUse,
			},
		},
	}
}

// DepositReceipt is the entry returned after a deposit is created or
// edited: where to poll the statement, and where to send corrections.
type DepositReceipt struct {
	XMLName xml.Name      `xml:"entry"`
	AtomNs  string        `xml:"xmlns,attr"`
	ID      string        `xml:"id"`
	Title   string        `xml:"title"`
	Links   []ReceiptLink `xml:"link"`
}

type ReceiptLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// Statement is the Atom feed a provider polls for one deposit. The
// category term follows SWORD's state vocabulary; the entry carries
// the deposit's own record, including its error log.
type Statement struct {
	XMLName  xml.Name          `xml:"feed"`
	AtomNs   string            `xml:"xmlns,attr"`
	SwordNs  string            `xml:"xmlns:sword,attr"`
	Category StatementCategory `xml:"category"`
	Entry    StatementEntry    `xml:"entry"`
}

type StatementCategory struct {
	Scheme string `xml:"scheme,attr"`
	Term   string `xml:"term,attr"`
	Label  string `xml:"label,attr"`
}

type StatementEntry struct {
	ID       string   `xml:"id"`
	Title    string   `xml:"title"`
	State    string   `xml:"sword:depositState"`
	ErrorLog []string `xml:"sword:verboseDescription,omitempty"`
}

// StatementTerm maps a deposit's pipeline state onto the three-term
// vocabulary providers understand: in progress, preserved, failed.
func StatementTerm(deposit *models.Deposit) string {
	if deposit.State == constants.StateAcknowledged {
		return constants.TermAgreement
	}
	if deposit.IsTerminal() {
		return constants.TermFailed
	}
	return constants.TermInProgress
}

// NewStatement builds the statement feed for one deposit.
func NewStatement(deposit *models.Deposit) *Statement {
	term := StatementTerm(deposit)
	label := map[string]string{
		constants.TermAgreement:  "Content preserved",
		constants.TermFailed:     "Processing failed",
		constants.TermInProgress: "Processing in progress",
	}[term]
	return &Statement{
		AtomNs:  models.AtomNamespace,
		SwordNs: SwordNamespace,
		Category: StatementCategory{
			Scheme: "http://purl.org/net/sword/terms/state",
			Term:   term,
			Label:  label,
		},
		Entry: StatementEntry{
			ID:       "urn:uuid:" + deposit.UUID,
			Title:    deposit.FileName(),
			State:    deposit.State,
			ErrorLog: deposit.ErrorLog,
		},
	}
}

// ErrorDocument is the SWORD error response body.
type ErrorDocument struct {
	XMLName xml.Name `xml:"sword:error"`
	SwordNs string   `xml:"xmlns:sword,attr"`
	Summary string   `xml:"summary"`
}

func NewErrorDocument(summary string) *ErrorDocument {
	return &ErrorDocument{
		SwordNs: SwordNamespace,
		Summary: summary,
	}
}
