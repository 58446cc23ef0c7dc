package domain

import "errors"

// Session-fatal errors. Any of these tears the session down; the user must
// reconnect manually.
var (
	ErrAuthentication    = errors.New("authentication failed")
	ErrNetwork           = errors.New("connection failed")
	ErrDeviceUnavailable = errors.New("capture device unavailable")
)

// ErrSummarization marks a failed summarizer call. Contained at the analysis
// scheduler boundary; never fatal.
var ErrSummarization = errors.New("summarization failed")
