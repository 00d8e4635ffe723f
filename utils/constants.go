package utils

import (
	"time"
)

// HTTP constants
const (
	// RequestIDHeader carries the request correlation id
	RequestIDHeader = "X-Request-ID"

	// ContentTypeHTML is used for every rendered page
	ContentTypeHTML = "text/html; charset=utf-8"
)

// Display constants
const (
	// DisplayTimeLayout is used by the dashboard and the CLI tables
	DisplayTimeLayout = "2006-01-02 15:04:05"

	// DatabasePingInterval is the first retry delay while waiting for the database at startup
	DatabasePingInterval = 500 * time.Millisecond
)
