package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapter"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"
)

// ErrTargetType is returned for a target without a type.
var ErrTargetType = errors.New("target type is required")

// ValidateTarget checks the target type against the adapter registry.
func ValidateTarget(t *core.TargetConfig) error {
	if t == nil || t.Type == "" {
		return ErrTargetType
	}

	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	if t.Port < 0 || t.Port > 65535 {
		return fmt.Errorf("target port %d out of range", t.Port)
	}
	return nil
}

// ValidateOData checks an OData section. An empty base URL is allowed; the
// odata commands report it when they need it.
func ValidateOData(o *core.ODataConfig) error {
	if o == nil {
		return nil
	}
	if o.BaseURL != "" {
		u, err := url.Parse(o.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("odata.base_url %q must be an absolute http or https URL", o.BaseURL)
		}
	}
	if o.Timeout < 0 {
		return fmt.Errorf("odata.timeout must not be negative")
	}
	if o.MaxConcurrency < 0 {
		return fmt.Errorf("odata.max_concurrency must not be negative")
	}
	return nil
}
