package server

import (
	"fmt"
	"runtime"
	"time"
)

// Build information set at compile time via ldflags
var (
	// Version is the git commit hash
	Version = "dev"
	// BuildTime is when the binary was built
	BuildTime = "unknown"
	// GoVersion is the version of Go used to build
	GoVersion = runtime.Version()
)

const serviceName = "flood-live"

// VersionInfo describes the running build and, when known, the catalog it
// is serving
type VersionInfo struct {
	Service   string       `json:"service"`
	Version   string       `json:"version"`
	BuildTime string       `json:"build_time"`
	GoVersion string       `json:"go_version"`
	Uptime    string       `json:"uptime"`
	Catalog   *CatalogInfo `json:"catalog,omitempty"`
	StartTime time.Time    `json:"-"`
}

// CatalogInfo is the cache state of the station catalog
type CatalogInfo struct {
	Stations  int        `json:"stations"`
	Mapped    int        `json:"mapped"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
	Expires   *time.Time `json:"expires,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

var startTime = time.Now()

// GetVersionInfo returns the current version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Service:   serviceName,
		Version:   Version,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		StartTime: startTime,
	}
}

// GetVersionString returns a short version string for headers and ETags
func GetVersionString() string {
	if Version == "dev" {
		// Changes on each restart so dev builds bust caches
		return fmt.Sprintf("dev-%d-%s", startTime.Unix(), GoVersion)
	}
	return Version
}
