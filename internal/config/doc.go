// Package config provides configuration types and loading for centic-ctl.
//
// # Configuration File
//
// Settings are read from centic.toml in the data directory. The file is
// optional; every key falls back to a default matching the original hourly
// claimer:
//
//	base_url        = "https://develop.centic.io/ctp-api/centic-points"
//	tokens_file     = "tokens.txt"
//	proxy_file      = "proxy.txt"
//	schedule        = "@every 1h"
//	jitter_min      = "1s"
//	jitter_max      = "3s"
//	failure_pause   = "1s"
//	request_timeout = "30s"
//	metrics_addr    = ""
//	audit_log       = false
//
// # Paths
//
// Relative file names resolve inside the data directory via
// filepath-securejoin, so "../x" and symlinks cannot escape it. Absolute
// paths are used as given.
//
// # Validation
//
// Load validates after decoding; Validate can also be called after command
// line overrides are applied.
package config
