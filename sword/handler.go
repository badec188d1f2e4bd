package sword

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/service"
	"github.com/westvault/staging/util"
)

// maxEnvelopeSize bounds deposit envelope bodies. Envelopes are
// small Atom entries; anything bigger is someone posting the payload
// to the wrong endpoint.
const maxEnvelopeSize = 4 * 1024 * 1024

// Handler is the SWORD protocol surface. One instance serves all
// providers.
type Handler struct {
	Context *context.Context
	Gate    *service.AccessGate
}

func NewHandler(_context *context.Context) *Handler {
	return &Handler{
		Context: _context,
		Gate:    service.NewAccessGate(_context.Store, _context.Config.Accepting),
	}
}

// Router mounts every route the staging server exposes.
func (handler *Handler) Router() chi.Router {
	router := chi.NewRouter()
	router.Use(RequestLogger(handler.Context.MessageLog))
	operatorAuth := OperatorAuth(
		handler.Context.Config.OperatorTokenSecretEnv,
		handler.Context.MessageLog)

	router.Route("/api/sword/2.0", func(r chi.Router) {
		r.Get("/sd-iri", handler.ServiceDocument)
		r.Post("/col-iri/{providerUUID}", handler.CreateDeposit)
		r.Get("/cont-iri/{providerUUID}/{depositUUID}/state", handler.Statement)
		r.Put("/cont-iri/{providerUUID}/{depositUUID}/edit", handler.EditDeposit)
	})
	// The downstream network fetches sealed archival units here.
	router.Get("/fetch/{fileName}", handler.FetchSealedContainer)
	router.With(operatorAuth).Get("/operator/deposits/{depositUUID}", handler.OperatorDeposit)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return router
}

// fetchHeader reads a protocol header, accepting the plain name, the
// X- prefixed name, or a query parameter of the same name. Provider
// plugins and the proxies in front of them are not consistent about
// which one survives.
func fetchHeader(r *http.Request, name string) string {
	if value := r.Header.Get(name); value != "" {
		return value
	}
	if value := r.Header.Get("X-" + name); value != "" {
		return value
	}
	return r.URL.Query().Get(name)
}

// ServiceDocument answers GET sd-iri. The On-Behalf-Of header names
// the provider; first contact registers it.
func (handler *Handler) ServiceDocument(w http.ResponseWriter, r *http.Request) {
	providerUUID := strings.ToUpper(fetchHeader(r, "On-Behalf-Of"))
	providerURL := fetchHeader(r, "Provider-Url")
	if providerUUID == "" || providerURL == "" {
		handler.swordError(w, http.StatusBadRequest,
			"On-Behalf-Of and Provider-Url are required")
		return
	}
	provider, err := handler.upsertProvider(providerUUID, providerURL)
	if err != nil {
		handler.swordError(w, http.StatusInternalServerError, err.Error())
		return
	}
	allowed, err := handler.Gate.Allowed(providerUUID)
	if err != nil {
		handler.swordError(w, http.StatusInternalServerError, err.Error())
		return
	}
	handler.logAccess(r, "service document", providerUUID, allowed)

	config := handler.Context.Config
	document := NewServiceDocument(
		fmt.Sprintf("%s/api/sword/2.0/col-iri/%s", config.ServiceBaseURL, providerUUID),
		config.MaxAuSize,
		config.TermsOfUse)
	document.Workspace.Collection.Accepting = Flag{
		IsAccepting: yesNo(allowed),
		Message:     handler.networkMessage(provider, allowed),
	}
	handler.writeXML(w, http.StatusOK, document)
}

// networkMessage picks the status line the provider's plugin shows:
// the old-version warning wins, then the accepting message, then the
// configured default.
func (handler *Handler) networkMessage(provider *models.Provider, allowed bool) string {
	config := handler.Context.Config
	if provider.Version != "" && util.CompareVersions(provider.Version, config.MinVersion) < 0 {
		return config.NetworkOldVersion
	}
	if allowed {
		return config.NetworkAccepting
	}
	return config.NetworkDefault
}

// CreateDeposit answers POST col-iri: parses the envelope, registers
// or refreshes the provider, and creates the deposit in the submitted
// state.
func (handler *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	providerUUID := strings.ToUpper(chi.URLParam(r, "providerUUID"))
	allowed, err := handler.Gate.Allowed(providerUUID)
	if err != nil {
		handler.swordError(w, http.StatusInternalServerError, err.Error())
		return
	}
	handler.logAccess(r, "create deposit", providerUUID, allowed)
	if !allowed {
		handler.swordError(w, http.StatusBadRequest,
			"the network is not accepting deposits from this provider")
		return
	}

	envelope, ok := handler.readEnvelope(w, r)
	if !ok {
		return
	}
	if _, err := handler.upsertProviderFromEnvelope(providerUUID, envelope); err != nil {
		handler.swordError(w, http.StatusInternalServerError, err.Error())
		return
	}

	depositUUID := envelope.DepositUUID()
	existing, err := handler.Context.Store.DepositByUUID(depositUUID)
	if err != nil {
		handler.swordError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing != nil {
		handler.swordError(w, http.StatusBadRequest,
			fmt.Sprintf("deposit %s already exists; use the edit IRI to resubmit", depositUUID))
		return
	}

	deposit := models.NewDeposit(providerUUID, depositUUID)
	applyEnvelope(deposit, envelope)
	deposit.DepositReceipt = handler.stateIri(providerUUID, depositUUID)
	if err := handler.Context.Store.SaveDeposit(deposit); err != nil {
		handler.swordError(w, http.StatusInternalServerError, err.Error())
		return
	}
	handler.Context.MessageLog.Info("provider %s created deposit %s (%d bytes from %s)",
		providerUUID, deposit.UUID, deposit.Size, deposit.URL)

	w.Header().Set("Location", deposit.DepositReceipt)
	handler.writeXML(w, http.StatusCreated, handler.receipt(deposit))
}

// Statement answers GET state IRI. The gate normally decides access,
// but a valid operator token opens any statement, so staff can
// inspect deposits of denied providers.
func (handler *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	providerUUID := strings.ToUpper(chi.URLParam(r, "providerUUID"))
	depositUUID := strings.ToUpper(chi.URLParam(r, "depositUUID"))

	allowed, err := handler.Gate.Allowed(providerUUID)
	if err != nil {
		handler.swordError(w, http.StatusInternalServerError, err.Error())
		return
	}
	operator := false
	if !allowed {
		operator = handler.hasOperatorToken(r)
	}
	handler.logAccess(r, "statement", providerUUID, allowed || operator)
	if !allowed && !operator {
		handler.swordError(w, http.StatusBadRequest,
			"the network is not accepting requests from this provider")
		return
	}

	deposit, ok := handler.ownedDeposit(w, providerUUID, depositUUID)
	if !ok {
		return
	}
	if provider, err := handler.Context.Store.ProviderByUUID(providerUUID); err == nil && provider != nil {
		provider.Touch()
		handler.Context.Store.SaveProvider(provider)
	}
	handler.writeXML(w, http.StatusOK, NewStatement(deposit))
}

// EditDeposit answers PUT edit IRI: the provider is resubmitting
// corrected content for an existing deposit. The deposit's payload
// reference is refreshed and its pipeline starts over from submitted.
func (handler *Handler) EditDeposit(w http.ResponseWriter, r *http.Request) {
	providerUUID := strings.ToUpper(chi.URLParam(r, "providerUUID"))
	depositUUID := strings.ToUpper(chi.URLParam(r, "depositUUID"))

	allowed, err := handler.Gate.Allowed(providerUUID)
	if err != nil {
		handler.swordError(w, http.StatusInternalServerError, err.Error())
		return
	}
	handler.logAccess(r, "edit deposit", providerUUID, allowed)
	if !allowed {
		handler.swordError(w, http.StatusBadRequest,
			"the network is not accepting deposits from this provider")
		return
	}

	envelope, ok := handler.readEnvelope(w, r)
	if !ok {
		return
	}
	if envelope.DepositUUID() != depositUUID {
		handler.swordError(w, http.StatusBadRequest,
			fmt.Sprintf("envelope id %s does not match deposit %s",
				envelope.DepositUUID(), depositUUID))
		return
	}
	if _, ok := handler.ownedDeposit(w, providerUUID, depositUUID); !ok {
		return
	}

	var updated *models.Deposit
	err = handler.Context.Store.UpdateDeposit(depositUUID, func(deposit *models.Deposit) error {
		applyEnvelope(deposit, envelope)
		deposit.HarvestAttempts = 0
		deposit.AuContainerID = 0
		deposit.SetState(constants.StateSubmitted)
		deposit.AddErrorLog("deposit resubmitted by provider, restarting processing")
		updated = deposit
		return nil
	})
	if err != nil {
		handler.swordError(w, http.StatusInternalServerError, err.Error())
		return
	}
	handler.Context.MessageLog.Info("provider %s resubmitted deposit %s",
		providerUUID, depositUUID)

	w.Header().Set("Location", handler.stateIri(providerUUID, depositUUID))
	handler.writeXML(w, http.StatusCreated, handler.receipt(updated))
}

// FetchSealedContainer serves sealed archival unit files to the
// downstream network. Only flat file names under the staging
// directory are served; no traversal.
func (handler *Handler) FetchSealedContainer(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "fileName")
	if fileName != filepath.Base(fileName) || strings.HasPrefix(fileName, ".") {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(handler.Context.Paths.StagingDir(), fileName))
}

// OperatorDeposit dumps one deposit record as a statement, for staff.
func (handler *Handler) OperatorDeposit(w http.ResponseWriter, r *http.Request) {
	depositUUID := strings.ToUpper(chi.URLParam(r, "depositUUID"))
	deposit, err := handler.Context.Store.DepositByUUID(depositUUID)
	if err != nil {
		handler.swordError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if deposit == nil {
		handler.swordError(w, http.StatusNotFound,
			fmt.Sprintf("deposit %s does not exist", depositUUID))
		return
	}
	handler.writeXML(w, http.StatusOK, NewStatement(deposit))
}

// ---- helpers ----

// readEnvelope parses and validates the request body. It writes the
// error response itself; callers just bail out on !ok.
func (handler *Handler) readEnvelope(w http.ResponseWriter, r *http.Request) (*models.DepositEnvelope, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEnvelopeSize))
	if err != nil {
		handler.swordError(w, http.StatusInternalServerError,
			fmt.Sprintf("cannot read request body: %v", err))
		return nil, false
	}
	envelope, err := models.ParseDepositEnvelope(body)
	if err != nil {
		handler.swordError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return envelope, true
}

// ownedDeposit loads the deposit and checks it belongs to the
// provider in the URL. Unknown and mismatched deposits both come back
// as protocol errors (400), which is what the provider plugin expects
// on the state and edit IRIs.
func (handler *Handler) ownedDeposit(w http.ResponseWriter, providerUUID, depositUUID string) (*models.Deposit, bool) {
	deposit, err := handler.Context.Store.DepositByUUID(depositUUID)
	if err != nil {
		handler.swordError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if deposit == nil {
		handler.swordError(w, http.StatusBadRequest,
			fmt.Sprintf("deposit %s does not exist", depositUUID))
		return nil, false
	}
	if deposit.ProviderUUID != providerUUID {
		handler.swordError(w, http.StatusBadRequest,
			fmt.Sprintf("deposit %s does not belong to provider %s",
				depositUUID, providerUUID))
		return nil, false
	}
	return deposit, true
}

// upsertProvider registers a new provider or refreshes contact on a
// known one. A changed site URL is recorded but flagged in the log;
// providers move hosts more often than you'd think.
func (handler *Handler) upsertProvider(providerUUID, providerURL string) (*models.Provider, error) {
	store := handler.Context.Store
	provider, err := store.ProviderByUUID(providerUUID)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		provider = models.NewProvider(providerUUID, providerURL)
		handler.Context.MessageLog.Info("registered new provider %s at %s",
			provider.UUID, providerURL)
	} else {
		if providerURL != "" && provider.URL != providerURL {
			handler.Context.MessageLog.Warning("provider %s changed URL from %s to %s",
				provider.UUID, provider.URL, providerURL)
			provider.URL = providerURL
		}
		provider.Touch()
	}
	return provider, store.SaveProvider(provider)
}

// upsertProviderFromEnvelope refreshes the provider record with the
// metadata carried in a deposit envelope.
func (handler *Handler) upsertProviderFromEnvelope(providerUUID string, envelope *models.DepositEnvelope) (*models.Provider, error) {
	provider, err := handler.upsertProvider(providerUUID, envelope.ProviderURL)
	if err != nil {
		return nil, err
	}
	if envelope.Title != "" {
		provider.Name = envelope.Title
	}
	if envelope.Email != "" {
		provider.Email = envelope.Email
	}
	if envelope.PublisherName != "" {
		provider.PublisherName = envelope.PublisherName
	}
	if envelope.PublisherURL != "" {
		provider.PublisherURL = envelope.PublisherURL
	}
	if envelope.Issn != "" {
		provider.Issn = envelope.Issn
	}
	return provider, handler.Context.Store.SaveProvider(provider)
}

// applyEnvelope copies the payload reference and serial metadata from
// an envelope onto a deposit.
func applyEnvelope(deposit *models.Deposit, envelope *models.DepositEnvelope) {
	deposit.URL = envelope.ContentURL()
	deposit.Size = envelope.Content.Size
	deposit.ChecksumType = envelope.ChecksumType()
	deposit.ChecksumValue = strings.ToLower(envelope.Content.ChecksumValue)
	deposit.Volume = envelope.Content.Volume
	deposit.Issue = envelope.Content.Issue
	deposit.PubDate = envelope.Content.PubDate
	deposit.License = envelope.LicenseMap()
}

// logAccess writes the audit line for one protocol operation: who
// asked, from where, and what the gate decided.
func (handler *Handler) logAccess(r *http.Request, operation, token string, allowed bool) {
	handler.Context.MessageLog.Info("%s - %s - %s - accepting: %s",
		operation, r.RemoteAddr, token, yesNo(allowed))
}

func (handler *Handler) stateIri(providerUUID, depositUUID string) string {
	return fmt.Sprintf("%s/api/sword/2.0/cont-iri/%s/%s/state",
		handler.Context.Config.ServiceBaseURL, providerUUID, depositUUID)
}

func (handler *Handler) editIri(providerUUID, depositUUID string) string {
	return fmt.Sprintf("%s/api/sword/2.0/cont-iri/%s/%s/edit",
		handler.Context.Config.ServiceBaseURL, providerUUID, depositUUID)
}

func (handler *Handler) receipt(deposit *models.Deposit) *DepositReceipt {
	return &DepositReceipt{
		AtomNs: models.AtomNamespace,
		ID:     "urn:uuid:" + deposit.UUID,
		Title:  deposit.FileName(),
		Links: []ReceiptLink{
			{Rel: "http://purl.org/net/sword/terms/statement",
				Href: handler.stateIri(deposit.ProviderUUID, deposit.UUID)},
			{Rel: "edit",
				Href: handler.editIri(deposit.ProviderUUID, deposit.UUID)},
		},
	}
}

// hasOperatorToken reports whether the request carries a valid
// operator bearer token. It reuses the auth middleware against a
// throwaway handler, so the validation rules live in one place.
func (handler *Handler) hasOperatorToken(r *http.Request) bool {
	if r.Header.Get("Authorization") == "" {
		return false
	}
	valid := false
	check := OperatorAuth(
		handler.Context.Config.OperatorTokenSecretEnv,
		handler.Context.MessageLog)(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { valid = true }))
	check.ServeHTTP(&discardResponseWriter{}, r)
	return valid
}

type discardResponseWriter struct{}

func (discardResponseWriter) Header() http.Header         { return http.Header{} }
func (discardResponseWriter) Write(p []byte) (int, error) { return len(p), nil }
func (discardResponseWriter) WriteHeader(int)             {}

func (handler *Handler) writeXML(w http.ResponseWriter, status int, document interface{}) {
	body, err := xml.MarshalIndent(document, "", "  ")
	if err != nil {
		handler.Context.MessageLog.Error("cannot serialize response: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(xml.Header))
	w.Write(body)
}

func (handler *Handler) swordError(w http.ResponseWriter, status int, summary string) {
	handler.Context.MessageLog.Warning("request failed (%d): %s", status, summary)
	handler.writeXML(w, status, NewErrorDocument(summary))
}

func yesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}
