package duckdb

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration, decoded from
// adapter.Config.Params.
type Params struct {
	// Extensions to install and load (e.g. "json", "parquet")
	Extensions []string `mapstructure:"extensions"`

	// Settings are DuckDB configuration options applied when the database
	// is opened (e.g. threads, memory_limit, access_mode)
	Settings map[string]string `mapstructure:"settings"`
}

var extensionName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// parseParams decodes the raw params map. Scalars are accepted where
// strings are expected and a comma-separated string is accepted for
// extensions.
func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           p,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}

	for i, ext := range p.Extensions {
		ext = strings.TrimSpace(ext)
		if !extensionName.MatchString(ext) {
			return nil, fmt.Errorf("invalid duckdb params: extension name %q", ext)
		}
		p.Extensions[i] = ext
	}
	return p, nil
}

// buildDSN appends settings to the database path as query parameters,
// which the driver applies as configuration at open time.
func buildDSN(path string, settings map[string]string) string {
	if path == ":memory:" {
		path = ""
	}
	if len(settings) == 0 {
		return path
	}

	q := url.Values{}
	for k, v := range settings {
		q.Set(k, v)
	}
	return path + "?" + q.Encode()
}
