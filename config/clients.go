package config

import (
	"github.com/swapsight/swapsight/models"
	"github.com/swapsight/swapsight/providers"
	"github.com/swapsight/swapsight/providers/openocean"
	"github.com/swapsight/swapsight/providers/via"
)

// OpenOceanConfig maps the section onto the client's config, leaving
// unset values at the client defaults.
func (p ProviderConfig) OpenOceanConfig() openocean.Config {
	out := openocean.DefaultConfig(p.BaseURL)
	if p.ChainID > 0 {
		out.ChainID = p.ChainID
	}
	if p.RequestCeiling != 0 {
		out.RequestCeiling = p.RequestCeiling
	}
	if p.RetryAttempts > 0 {
		out.RetryAttempts = p.RetryAttempts
	}
	if p.RetryDelay > 0 {
		out.RetryDelay = p.RetryDelay
	}
	if p.ProbeInterval > 0 {
		out.ProbeInterval = p.ProbeInterval
	}
	if p.Timeout > 0 {
		out.Timeout = p.Timeout
	}
	return out
}

// ViaConfig maps the section onto the client's config, leaving unset
// values at the client defaults.
func (p ProviderConfig) ViaConfig() via.Config {
	out := via.DefaultConfig(p.BaseURL)
	if p.ChainID > 0 {
		out.ChainID = p.ChainID
	}
	if p.RequestCeiling != 0 {
		out.RequestCeiling = p.RequestCeiling
	}
	if p.RetryAttempts > 0 {
		out.RetryAttempts = p.RetryAttempts
	}
	if p.RetryDelay > 0 {
		out.RetryDelay = p.RetryDelay
	}
	if p.ProbeInterval > 0 {
		out.ProbeInterval = p.ProbeInterval
	}
	if p.Timeout > 0 {
		out.Timeout = p.Timeout
	}
	if p.SessionBatchSize != 0 {
		out.SessionBatchSize = p.SessionBatchSize
	}
	if p.QuotePollAttempts > 0 {
		out.QuotePollAttempts = p.QuotePollAttempts
	}
	if p.QuotePollWait > 0 {
		out.QuotePollWait = p.QuotePollWait
	}
	return out
}

// BuildClients creates the provider clients for the configured upstreams.
func (c *Config) BuildClients() map[models.Provider]providers.Client {
	return map[models.Provider]providers.Client{
		models.ProviderOpenOcean: openocean.New(c.Providers.OpenOcean.OpenOceanConfig()),
		models.ProviderVia:       via.New(c.Providers.Via.ViaConfig()),
	}
}
