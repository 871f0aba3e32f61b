// Package info holds application version information.
package info

var (
	// Version is set at build time with -ldflags "-X".
	Version = "DEV"
	// BuildDate is set at build time, formatted YYYY-MM-DD.
	BuildDate = ""
)
