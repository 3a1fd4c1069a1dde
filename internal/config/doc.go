// Package config loads feedlink configuration from YAML files.
//
// Files may reference environment variables with ${VAR} syntax; they are
// expanded before parsing. Load, LoadWithDefaults and LoadAndValidate layer
// reading, default application and validation.
package config
