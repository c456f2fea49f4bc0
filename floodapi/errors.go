package floodapi

import "fmt"

// FetchError reports a failed upstream request: a transport failure, a
// non-2xx status, an undecodable body or an open circuit breaker.
type FetchError struct {
	Endpoint   string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 && e.StatusCode != 200 {
		return fmt.Sprintf("%s: upstream returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
