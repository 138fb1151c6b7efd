package downloader

import "errors"

// ErrSubmissionInFlight is returned when Submit is called while a previous
// batch is still being submitted.
var ErrSubmissionInFlight = errors.New("a download submission is already in flight")
