// Package core defines the shared language of dwquery.
//
// This package contains:
//   - Tabular results (Result) returned by SQL executors and the OData client
//   - Dialect configuration data (DialectConfig, IdentifierConfig)
//   - Configuration types (TargetConfig, ODataConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
