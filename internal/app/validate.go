package app

import (
	"fmt"

	"copacabana/pkg/config"
)

// validateConfig rejects configurations that would fail at first use.
func validateConfig(eff config.EffectiveConfigResult) error {
	cfg := eff.Config
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if eff.DBPath == "" {
		return fmt.Errorf("db path must not be empty")
	}
	if cfg.Security.RateLimit.RPS < 0 {
		return fmt.Errorf("rate limit rps must not be negative")
	}
	if cfg.Security.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit burst must not be negative")
	}
	if (cfg.Server.TLS.CertFile == "") != (cfg.Server.TLS.KeyFile == "") {
		return fmt.Errorf("tls requires both cert_file and key_file")
	}
	return nil
}
