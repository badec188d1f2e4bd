package models

import "encoding/xml"

// PingResult is what we learned from one ping of a provider's PLN
// gateway. It is never persisted; the health monitor and the
// whitelist sweep consume it immediately and record the interesting
// parts on the Provider.
type PingResult struct {
	// HTTPStatus is the status code the gateway returned, or zero
	// when the request never completed.
	HTTPStatus int

	// Parsed reports whether the response body was a well-formed
	// gateway document.
	Parsed bool

	// Release is the provider's self-reported software release,
	// e.g. "2.4.8.1".
	Release string

	// TermsAccepted is the raw termsAccepted attribute: "yes" when
	// the provider has affirmed the network's terms of use.
	TermsAccepted string

	// Name is the provider title reported by the gateway.
	Name string

	// Error describes what went wrong, for the logs. Empty on a
	// clean ping.
	Error string
}

// gatewayDocument mirrors the XML the provider-side PLN plugin serves
// at its gateway endpoint.
type gatewayDocument struct {
	XMLName     xml.Name `xml:"plnplugin"`
	OjsRelease  string   `xml:"ojsInfo>release"`
	PluginTerms struct {
		Accepted string `xml:"termsAccepted,attr"`
	} `xml:"pluginInfo>terms"`
	ProviderName string `xml:"journalInfo>title"`
}

// ParsePingBody fills the result from a gateway response body.
// A body that does not parse leaves Parsed false with the parse error
// recorded; the caller decides how hard to fail.
func (result *PingResult) ParsePingBody(body []byte) {
	doc := &gatewayDocument{}
	if err := xml.Unmarshal(body, doc); err != nil {
		result.Parsed = false
		result.Error = "cannot parse gateway response: " + err.Error()
		return
	}
	result.Parsed = true
	result.Release = doc.OjsRelease
	result.TermsAccepted = doc.PluginTerms.Accepted
	result.Name = doc.ProviderName
}

// Succeeded reports whether the ping got a parseable 200 response.
func (result *PingResult) Succeeded() bool {
	return result.HTTPStatus == 200 && result.Parsed
}

// AreTermsAccepted reports whether the provider affirmatively
// accepted the terms of use. Anything other than "yes" counts as no.
func (result *PingResult) AreTermsAccepted() bool {
	return result.TermsAccepted == "yes"
}
