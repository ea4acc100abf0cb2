// Package config loads and validates feed daemon configuration.
//
// Configuration comes from a YAML file with ${VAR} environment expansion.
// Loading is layered:
//   - Load: read + parse
//   - LoadWithDefaults: fill optional fields
//   - LoadAndValidate: reject incomplete or out-of-range configs
package config
