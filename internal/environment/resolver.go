package environment

import (
	"net"
	"strings"

	"github.com/luminacare/checkout/internal/config"
	"go.uber.org/zap"
)

type Environment string

const (
	Sandbox Environment = "sandbox"
	Live    Environment = "live"
)

// Resolver decides the processor target for a request. The rules, in priority
// order: an explicit live=true from the caller always wins; the production
// apex or www hostname with live credentials present resolves live; a hostname
// carrying the staging marker always resolves sandbox; everything else is
// sandbox. Hostname inference never upgrades to live without credentials, so a
// placeholder signature can never reach the production endpoint.
type Resolver struct {
	productionDomain string
	stagingMarker    string
	hasLiveCreds     bool
	log              *zap.Logger
}

func NewResolver(cfg config.Config, log *zap.Logger) *Resolver {
	return &Resolver{
		productionDomain: strings.ToLower(cfg.ProductionDomain),
		stagingMarker:    strings.ToLower(cfg.StagingMarker),
		hasLiveCreds:     cfg.HasLiveCredentials(),
		log:              log.Named("environment"),
	}
}

// Resolve returns the processor environment for the given request host.
// explicitLive is the caller-supplied override; nil means not specified.
func (r *Resolver) Resolve(host string, explicitLive *bool) Environment {
	if explicitLive != nil && *explicitLive {
		return Live
	}

	hostname := normalizeHost(host)

	if r.stagingMarker != "" && strings.Contains(hostname, r.stagingMarker) {
		return Sandbox
	}

	if r.isProductionHost(hostname) {
		if r.hasLiveCreds {
			return Live
		}
		r.log.Warn("production hostname without live credentials, staying in sandbox",
			zap.String("host", hostname))
	}

	return Sandbox
}

func (r *Resolver) isProductionHost(hostname string) bool {
	if r.productionDomain == "" {
		return false
	}
	return hostname == r.productionDomain || hostname == "www."+r.productionDomain
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
