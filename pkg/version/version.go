// Package version exposes build-time version information.
package version

// Set via -ldflags at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)
