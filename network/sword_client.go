package network

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/models"
)

// SwordStateScheme is the scheme of the category element carrying the
// deposit's processing state in a SWORD statement.
const SwordStateScheme = "http://purl.org/net/sword/terms/state"

// SwordClient talks to the downstream preservation network's SWORD
// endpoint. The deposit transmitter uses it to announce sealed
// archival units, and the status checker polls it for processing
// terms until the network reports agreement.
type SwordClient struct {
	httpClient *http.Client

	// serviceURL is the network's SWORD 2.0 base, e.g.
	// "https://pln.example.org/api/sword/2.0".
	serviceURL string

	// providerUUID identifies this staging server to the network.
	// We are a provider from the network's point of view.
	providerUUID string
}

// DepositAnnouncement is what we tell the downstream network about a
// sealed archival unit: where to fetch it and how to verify it.
type DepositAnnouncement struct {
	DepositUUID   string
	Title         string
	Email         string
	ProviderURL   string
	PublisherName string
	PublisherURL  string
	Issn          string
	FetchURL      string
	Size          int64
	ChecksumType  string
	ChecksumValue string
	Volume        string
	Issue         string
	PubDate       string
	License       map[string]string
}

func NewSwordClient(serviceURL, providerUUID string, timeout time.Duration) *SwordClient {
	return &SwordClient{
		httpClient:   &http.Client{Timeout: timeout},
		serviceURL:   serviceURL,
		providerUUID: providerUUID,
	}
}

// CreateDeposit POSTs an Atom entry describing the archival unit to
// the network's collection IRI. On success it returns the statement
// URL from the Location header; the status checker polls that URL
// later. Anything but a 201 is an error.
func (client *SwordClient) CreateDeposit(announcement *DepositAnnouncement) (string, error) {
	body, err := announcementEntry(announcement)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/col-iri/%s", client.serviceURL, client.providerUUID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", constants.UserAgent)
	req.Header.Set("Content-Type", "application/atom+xml;type=entry")
	resp, err := client.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error announcing deposit %s: %v", announcement.DepositUUID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("network returned HTTP %d for deposit %s",
			resp.StatusCode, announcement.DepositUUID)
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("network accepted deposit %s but sent no Location header",
			announcement.DepositUUID)
	}
	return location, nil
}

// Statement fetches the deposit's SWORD statement and returns the
// processing term the network reports: inProgress, agreement or
// failed.
func (client *SwordClient) Statement(statementURL string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, statementURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", constants.UserAgent)
	resp, err := client.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error fetching statement %s: %v", statementURL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("statement %s returned HTTP %d", statementURL, resp.StatusCode)
	}
	statement := &swordStatement{}
	if err := xml.Unmarshal(body, statement); err != nil {
		return "", fmt.Errorf("cannot parse statement %s: %v", statementURL, err)
	}
	for _, category := range statement.Categories {
		if category.Scheme == SwordStateScheme {
			return category.Term, nil
		}
	}
	return "", fmt.Errorf("statement %s has no state category", statementURL)
}

type swordStatement struct {
	XMLName    xml.Name `xml:"feed"`
	Categories []struct {
		Scheme string `xml:"scheme,attr"`
		Term   string `xml:"term,attr"`
	} `xml:"category"`
}

func announcementEntry(announcement *DepositAnnouncement) ([]byte, error) {
	envelope := &models.DepositEnvelope{
		ID:            "urn:uuid:" + announcement.DepositUUID,
		Email:         announcement.Email,
		Title:         announcement.Title,
		Updated:       time.Now().UTC().Format(time.RFC3339),
		ProviderURL:   announcement.ProviderURL,
		PublisherName: announcement.PublisherName,
		PublisherURL:  announcement.PublisherURL,
		Issn:          announcement.Issn,
		Content: models.EnvelopeContent{
			Size:          announcement.Size,
			Volume:        announcement.Volume,
			Issue:         announcement.Issue,
			PubDate:       announcement.PubDate,
			ChecksumType:  announcement.ChecksumType,
			ChecksumValue: announcement.ChecksumValue,
			URL:           announcement.FetchURL,
		},
	}
	for name, value := range announcement.License {
		envelope.License.Terms = append(envelope.License.Terms, models.LicenseTerm{
			XMLName: xml.Name{Space: models.PlnNamespace, Local: name},
			Value:   value,
		})
	}
	body, err := xml.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("cannot serialize deposit entry: %v", err)
	}
	return append([]byte(xml.Header), body...), nil
}
