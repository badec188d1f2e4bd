package sword_test

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/sword"
)

func TestStatementTerm(t *testing.T) {
	deposit := models.NewDeposit("p", "d")
	assert.Equal(t, constants.TermInProgress, sword.StatementTerm(deposit))

	deposit.SetState(constants.StateDeposited)
	assert.Equal(t, constants.TermInProgress, sword.StatementTerm(deposit))

	deposit.SetState(constants.StateAcknowledged)
	assert.Equal(t, constants.TermAgreement, sword.StatementTerm(deposit))

	deposit.SetState(constants.StateVirusError)
	assert.Equal(t, constants.TermFailed, sword.StatementTerm(deposit))
}

func TestStatementCarriesErrorLog(t *testing.T) {
	deposit := models.NewDeposit("p", "d")
	deposit.SetState(constants.StateHarvestError)
	deposit.AddErrorLog("harvest: HTTP 404 from the provider")

	statement := sword.NewStatement(deposit)
	assert.Equal(t, constants.TermFailed, statement.Category.Term)
	assert.Equal(t, constants.StateHarvestError, statement.Entry.State)
	assert.Equal(t, []string{"harvest: HTTP 404 from the provider"}, statement.Entry.ErrorLog)

	body, err := xml.Marshal(statement)
	require.NoError(t, err)
	assert.Contains(t, string(body), "urn:uuid:D")
	assert.Contains(t, string(body), "HTTP 404")
}

func TestServiceDocumentShape(t *testing.T) {
	document := sword.NewServiceDocument("http://staging.test/col-iri/ABC", 1<<30,
		[]string{"Content must be openly licensed."})
	document.Workspace.Collection.Accepting = sword.Flag{IsAccepting: "Yes", Message: "open"}

	body, err := xml.Marshal(document)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `href="http://staging.test/col-iri/ABC"`)
	assert.Contains(t, text, "<sword:version>2.0</sword:version>")
	assert.Contains(t, text, `is_accepting="Yes"`)
	assert.Contains(t, text, "openly licensed")
}
