package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks LLM settings by building the provider and pinging it.
// Each check opens and closes its own client, so the validator holds no state
// between calls.
type ConfigValidator struct {
	timeout time.Duration
}

// ValidatorOption configures a ConfigValidator.
type ValidatorOption func(*ConfigValidator)

// WithPingTimeout bounds each connectivity check.
func WithPingTimeout(d time.Duration) ValidatorOption {
	return func(v *ConfigValidator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator(opts ...ValidatorOption) *ConfigValidator {
	v := &ConfigValidator{timeout: pingTimeout}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateLLM pings the configured provider.
// Unconfigured settings are not an error; there is nothing to check yet.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}
	return ping(config, v.timeout)
}

func ping(settings *domain.LLMSettings, timeout time.Duration) error {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return svc.Ping(ctx)
}
