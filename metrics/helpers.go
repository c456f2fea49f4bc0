// Package metrics provides Prometheus collectors and helpers
package metrics

import (
	"net/url"
	"runtime"
)

// ExtractOrigin extracts the host from a URL for origin tracking
func ExtractOrigin(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	return parsed.Host
}

// RecordMemoryUsage updates memory usage metrics and returns the allocated
// heap in megabytes
func RecordMemoryUsage() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsageBytes.Set(float64(m.Alloc))
	return float64(m.Alloc) / 1024 / 1024
}

// ErrorRateStats holds error rate statistics
type ErrorRateStats struct {
	TotalRequests float64
	ErrorRequests float64
	ErrorRate     float64 // Percentage
	ErrorsPerSec  float64
}

// CalculateErrorRate calculates error rate from request and error counts
func CalculateErrorRate(totalRequests, errorRequests, lastErrors float64, elapsedSeconds float64) ErrorRateStats {
	errorRate := 0.0
	if totalRequests > 0 {
		errorRate = (errorRequests / totalRequests) * 100.0
	}

	errorsPerSec := 0.0
	if elapsedSeconds > 0 {
		errorsPerSec = (errorRequests - lastErrors) / elapsedSeconds
	}

	return ErrorRateStats{
		TotalRequests: totalRequests,
		ErrorRequests: errorRequests,
		ErrorRate:     errorRate,
		ErrorsPerSec:  errorsPerSec,
	}
}
