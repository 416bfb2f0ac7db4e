// Package config defines the gateway configuration model and loading
// pipeline.
//
// Configuration is loaded from a YAML file, filled with defaults, and
// validated before use:
//
//	cfg, err := config.LoadConfig("gateway.yaml")
//
// LoadConfigWithEnvOverrides additionally applies environment variables of
// the form MATEY_SECTION_FIELD (for example MATEY_ROUTER_STRATEGY), which
// always win over file values. Backend credentials follow the pattern
// MATEY_BACKENDS_<NAME>_API_KEY so secrets stay out of config files.
//
// # Hot Reload
//
// FileWatcher watches a config file with fsnotify and invokes a reload
// callback after a short debounce window, so rapid editor save sequences
// trigger a single reload. The watcher only reports changes; deciding what
// to rebuild (backend set, router strategy) is the caller's job.
//
// # Validation
//
// Validate collects every problem into a single ValidationError rather than
// stopping at the first, so a bad config file can be fixed in one pass.
package config
