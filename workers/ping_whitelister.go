package workers

import (
	"fmt"
	"time"

	"github.com/westvault/staging/constants"
	"github.com/westvault/staging/context"
	"github.com/westvault/staging/models"
	"github.com/westvault/staging/network"
	"github.com/westvault/staging/util"
)

// PingWhitelister sweeps the registered providers, pings each one and
// auto-allows the ones running a recent enough release with the terms
// of use accepted. Providers already on either access list, and
// providers whose last sweep ended in a ping error, are skipped unless
// All is set. A deny-listed provider is never auto-allowed: under
// allow-first gate precedence that would overturn an operator's deny.
type PingWhitelister struct {
	Context    *context.Context
	PingClient *network.PingClient
	All        bool
	DryRun     bool
}

func NewPingWhitelister(_context *context.Context, all, dryRun bool) *PingWhitelister {
	timeout := models.DurationValue(_context.Config.PingTimeout, 30*time.Second)
	return &PingWhitelister{
		Context:    _context,
		PingClient: network.NewPingClient(timeout),
		All:        all,
		DryRun:     dryRun,
	}
}

// Run sweeps all providers once.
func (whitelister *PingWhitelister) Run() *models.WorkSummary {
	summary := models.NewWorkSummary()
	summary.Start()
	log := whitelister.Context.MessageLog

	providers, err := whitelister.Context.Store.Providers()
	if err != nil {
		summary.AddError("cannot list providers: %v", err)
		summary.ErrorIsFatal = true
		summary.Finish()
		return summary
	}

	for _, provider := range providers {
		listed, err := whitelister.Context.Store.OnAccessList(models.ListAllow, provider.UUID)
		if err != nil {
			summary.AddError("provider %s: %v", provider.UUID, err)
			continue
		}
		if listed && !whitelister.All {
			continue
		}
		denied, err := whitelister.Context.Store.OnAccessList(models.ListDeny, provider.UUID)
		if err != nil {
			summary.AddError("provider %s: %v", provider.UUID, err)
			continue
		}
		if denied && !whitelister.All {
			continue
		}
		if provider.Status == constants.StatusPingError && !whitelister.All {
			continue
		}
		if whitelister.DryRun {
			log.Info("would ping %s (dry run)", provider.GatewayURL())
			continue
		}
		whitelister.sweepProvider(provider, listed, summary)
	}
	summary.Finish()
	return summary
}

func (whitelister *PingWhitelister) sweepProvider(provider *models.Provider, listed bool, summary *models.WorkSummary) {
	log := whitelister.Context.MessageLog
	result := whitelister.PingClient.Ping(provider.GatewayURL())
	if !result.Succeeded() || result.Release == "" {
		provider.Status = constants.StatusPingError
		log.Warning("provider %s: ping failed: %s", provider.UUID, result.Error)
		if err := whitelister.Context.Store.SaveProvider(provider); err != nil {
			summary.AddError("cannot save provider %s: %v", provider.UUID, err)
		}
		return
	}

	provider.Version = result.Release
	provider.TermsAccepted = result.AreTermsAccepted()
	provider.Touch()
	if err := whitelister.Context.Store.SaveProvider(provider); err != nil {
		summary.AddError("cannot save provider %s: %v", provider.UUID, err)
		return
	}

	minVersion := whitelister.Context.Config.MinVersion
	if listed {
		return
	}
	if !provider.TermsAccepted {
		log.Info("provider %s has not accepted the terms of use, not listing",
			provider.UUID)
		return
	}
	if util.CompareVersions(result.Release, minVersion) < 0 {
		log.Info("provider %s runs release %s, below minimum %s, not listing",
			provider.UUID, result.Release, minVersion)
		return
	}
	// Re-check the deny list right before listing. An operator's deny
	// stands no matter what the gateway reports.
	denied, err := whitelister.Context.Store.OnAccessList(models.ListDeny, provider.UUID)
	if err != nil {
		summary.AddError("provider %s: %v", provider.UUID, err)
		return
	}
	if denied {
		log.Info("provider %s is on the deny list, not listing", provider.UUID)
		return
	}
	entry := models.NewAccessListEntry(provider.UUID,
		fmt.Sprintf("auto-allowed by sweep: release %s on %s",
			result.Release, time.Now().UTC().Format("2006-01-02")))
	if err := whitelister.Context.Store.AddAccessEntry(models.ListAllow, entry); err != nil {
		summary.AddError("cannot allow provider %s: %v", provider.UUID, err)
		return
	}
	log.Info("provider %s (%s) added to the allow list", provider.UUID, provider.Name)
}
