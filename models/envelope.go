package models

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/westvault/staging/constants"
)

// XML namespaces used in deposit envelopes. The submission format is
// the Atom entry produced by the provider-side PLN plugin.
const (
	AtomNamespace = "http://www.w3.org/2005/Atom"
	PlnNamespace  = "http://pkp.sfu.ca/SWORD"
)

// DepositEnvelope is the parsed body of a SWORD create-deposit or
// edit-deposit request: an Atom entry describing the provider and the
// payload to harvest. It is transient; the controller copies its
// fields onto Provider and Deposit records.
type DepositEnvelope struct {
	XMLName       xml.Name        `xml:"http://www.w3.org/2005/Atom entry"`
	ID            string          `xml:"http://www.w3.org/2005/Atom id"`
	Email         string          `xml:"http://www.w3.org/2005/Atom email"`
	Title         string          `xml:"http://www.w3.org/2005/Atom title"`
	Updated       string          `xml:"http://www.w3.org/2005/Atom updated"`
	ProviderURL   string          `xml:"http://pkp.sfu.ca/SWORD journal_url"`
	PublisherName string          `xml:"http://pkp.sfu.ca/SWORD publisherName"`
	PublisherURL  string          `xml:"http://pkp.sfu.ca/SWORD publisherUrl"`
	Issn          string          `xml:"http://pkp.sfu.ca/SWORD issn"`
	Content       EnvelopeContent `xml:"http://pkp.sfu.ca/SWORD content"`
	License       EnvelopeLicense `xml:"http://pkp.sfu.ca/SWORD license"`
}

// EnvelopeContent is the content reference inside an envelope: the
// payload URL plus the size, serial and checksum metadata the
// pipeline verifies against.
type EnvelopeContent struct {
	Size          int64  `xml:"size,attr"`
	Volume        string `xml:"volume,attr"`
	Issue         string `xml:"issue,attr"`
	PubDate       string `xml:"pubdate,attr"`
	ChecksumType  string `xml:"checksumType,attr"`
	ChecksumValue string `xml:"checksumValue,attr"`
	URL           string `xml:",chardata"`
}

// EnvelopeLicense holds the license child elements. The staging
// server passes license terms through without interpreting them.
type EnvelopeLicense struct {
	Terms []LicenseTerm `xml:",any"`
}

// LicenseTerm is one license element, keyed by its local name.
type LicenseTerm struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// ParseDepositEnvelope parses and validates an envelope document.
func ParseDepositEnvelope(body []byte) (*DepositEnvelope, error) {
	envelope := &DepositEnvelope{}
	if err := xml.Unmarshal(body, envelope); err != nil {
		return nil, fmt.Errorf("cannot parse deposit envelope: %v", err)
	}
	if err := envelope.Validate(); err != nil {
		return nil, err
	}
	return envelope, nil
}

// DepositUUID returns the deposit identifier from the entry id,
// stripped of its urn:uuid prefix and upper-cased.
func (envelope *DepositEnvelope) DepositUUID() string {
	id := strings.TrimSpace(envelope.ID)
	id = strings.TrimPrefix(id, "urn:uuid:")
	return strings.ToUpper(id)
}

// ChecksumType returns the declared digest algorithm normalized to
// the constants.Alg* form: lower case, no dashes. "SHA-1" => "sha1".
func (envelope *DepositEnvelope) ChecksumType() string {
	algorithm := strings.ToLower(strings.TrimSpace(envelope.Content.ChecksumType))
	return strings.ReplaceAll(algorithm, "-", "")
}

// ContentURL returns the payload URL with surrounding whitespace
// removed. Provider plugins are sloppy about indentation inside the
// content element.
func (envelope *DepositEnvelope) ContentURL() string {
	return strings.TrimSpace(envelope.Content.URL)
}

// LicenseMap flattens the license terms into a map keyed by element
// local name.
func (envelope *DepositEnvelope) LicenseMap() map[string]string {
	terms := make(map[string]string)
	for _, term := range envelope.License.Terms {
		terms[term.XMLName.Local] = strings.TrimSpace(term.Value)
	}
	return terms
}

// Validate checks the fields the pipeline cannot work without.
func (envelope *DepositEnvelope) Validate() error {
	if envelope.DepositUUID() == "" {
		return fmt.Errorf("deposit envelope has no id")
	}
	if envelope.ContentURL() == "" {
		return fmt.Errorf("deposit envelope has no content URL")
	}
	if envelope.Content.Size <= 0 {
		return fmt.Errorf("deposit envelope declares no content size")
	}
	if envelope.Content.ChecksumValue == "" {
		return fmt.Errorf("deposit envelope has no checksum value")
	}
	algorithm := envelope.ChecksumType()
	for _, known := range constants.ChecksumAlgorithms {
		if algorithm == known {
			return nil
		}
	}
	return fmt.Errorf("unsupported checksum type '%s'", envelope.Content.ChecksumType)
}
