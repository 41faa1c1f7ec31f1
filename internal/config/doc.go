// Package config loads and validates the TOML configuration file.
//
// Load resolves the config path (explicit flag, then the user config dir, then
// a project-local whisperwatch.toml), applies defaults for missing values,
// expands ~ in path fields, and validates the result. The package also acts as
// the persisted-preferences store: the configured output directory and default
// model are what the queue consumes.
package config
