// Package config loads the library's environment-driven settings:
// persistence, TTLs, cleanup cadence, and the metrics fail-fast
// override. Unset variables defer to the consuming package's defaults;
// malformed values error at load time.
package config
