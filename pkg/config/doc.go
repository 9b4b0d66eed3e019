// Package config provides configuration loading, validation, and live
// reloading for the Saturn gateway.
//
// # Loading
//
// Configuration is read from a YAML file, defaulted with ApplyDefaults, and
// validated. Environment variables of the form SATURN_SECTION_FIELD override
// file values when loaded through LoadConfigWithEnvOverrides.
//
// # Live reload
//
// Watcher observes the configuration file with fsnotify and invokes a
// callback with the reloaded configuration after each change. Reloads are
// debounced, and a configuration that fails validation is rejected without
// disturbing the running one. Only the log level is applied live; other
// fields require a restart.
package config
