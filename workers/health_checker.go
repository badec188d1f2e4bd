package workers

import (
	"fmt"
	"strings"
	"time"

	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/network"
	"github.com/westvault/staging/service"
)

// HealthChecker finds providers that have gone quiet, tells operators
// about them, then pings their gateways. A provider whose gateway
// answers with the terms of use accepted is marked healthy and its
// contact refreshed; any other outcome marks it unhealthy. Operators
// hear about a silence once, before the pings, so a provider that
// happens to answer still gets looked at.
type HealthChecker struct {
	Context    *context.Context
	PingClient *network.PingClient
	Notifier   service.Notifier
	DryRun     bool

	// Clock supplies the current time for the silence window and the
	// contact/notified stamps. Tests move it; production leaves it.
	Clock func() time.Time
}

func NewHealthChecker(_context *context.Context, notifier service.Notifier, dryRun bool) *HealthChecker {
	timeout := models.DurationValue(_context.Config.PingTimeout, 30*time.Second)
	return &HealthChecker{
		Context:    _context,
		PingClient: network.NewPingClient(timeout),
		Notifier:   notifier,
		DryRun:     dryRun,
		Clock:      func() time.Time { return time.Now().UTC() },
	}
}

// Run checks every provider that has been silent longer than the
// configured number of days.
func (checker *HealthChecker) Run() *models.WorkSummary {
	summary := models.NewWorkSummary()
	summary.Start()
	log := checker.Context.MessageLog

	now := checker.Clock()
	cutoff := now.AddDate(0, 0, -checker.Context.Config.DaysSilent)
	providers, err := checker.Context.Store.Providers()
	if err != nil {
		summary.AddError("cannot list providers: %v", err)
		summary.ErrorIsFatal = true
		summary.Finish()
		return summary
	}

	silent := make([]*models.Provider, 0)
	for _, provider := range providers {
		if !provider.SilentSince(cutoff) {
			continue
		}
		log.Info("provider %s (%s) has been silent since %s",
			provider.UUID, provider.Name, provider.Contacted.Format(time.RFC3339))
		silent = append(silent, provider)
	}
	if len(silent) == 0 {
		summary.Finish()
		return summary
	}

	if checker.DryRun {
		checker.dryRunPings(silent)
		summary.Finish()
		return summary
	}

	checker.notifySilent(silent, cutoff, now, summary)
	for _, provider := range silent {
		checker.checkProvider(provider, summary)
	}
	summary.Finish()
	return summary
}

// dryRunPings pings the silent providers and reports what a real run
// would do, persisting nothing.
func (checker *HealthChecker) dryRunPings(silent []*models.Provider) {
	log := checker.Context.MessageLog
	for _, provider := range silent {
		result := checker.PingClient.Ping(provider.GatewayURL())
		if result.Succeeded() && result.AreTermsAccepted() {
			log.Info("would mark provider %s healthy, release %s (dry run)",
				provider.UUID, result.Release)
		} else {
			log.Info("would mark provider %s unhealthy (dry run)", provider.UUID)
		}
	}
}

// notifySilent sends one notification covering every provider whose
// silence has not been reported yet, and stamps their notified time.
// The stamps are persisted by checkProvider's save.
func (checker *HealthChecker) notifySilent(silent []*models.Provider, cutoff, now time.Time, summary *models.WorkSummary) {
	unreported := make([]*models.Provider, 0)
	for _, provider := range silent {
		if provider.Notified.Before(cutoff) {
			unreported = append(unreported, provider)
		}
	}
	if len(unreported) == 0 {
		return
	}

	lines := make([]string, 0, len(unreported))
	for _, provider := range unreported {
		lines = append(lines, fmt.Sprintf("%s (%s), last contact %s",
			provider.Name, provider.UUID,
			provider.Contacted.Format(time.RFC3339)))
	}
	err := checker.Notifier.Notify(
		fmt.Sprintf("%d provider(s) silent for more than %d days",
			len(unreported), checker.Context.Config.DaysSilent),
		"The following providers have not been in contact:\n"+
			strings.Join(lines, "\n"))
	if err != nil {
		summary.AddError("cannot notify about silent providers: %v", err)
		return
	}
	for _, provider := range unreported {
		provider.Notified = now
	}
}

func (checker *HealthChecker) checkProvider(provider *models.Provider, summary *models.WorkSummary) {
	log := checker.Context.MessageLog
	result := checker.PingClient.Ping(provider.GatewayURL())
	if result.Succeeded() && result.AreTermsAccepted() {
		provider.Version = result.Release
		provider.TermsAccepted = true
		provider.Contacted = checker.Clock()
		provider.Status = constants.StatusHealthy
		log.Info("provider %s answered, release %s", provider.UUID, result.Release)
	} else {
		reason := result.Error
		if result.Succeeded() {
			// The gateway answered but the provider has withdrawn from
			// the terms of use. Record what it reported.
			provider.Version = result.Release
			provider.TermsAccepted = false
			reason = "terms of use not accepted"
		}
		provider.Status = constants.StatusUnhealthy
		log.Warning("provider %s is unhealthy: %s", provider.UUID, reason)
	}
	if err := checker.Context.Store.SaveProvider(provider); err != nil {
		summary.AddError("cannot save provider %s: %v", provider.UUID, err)
	}
}
