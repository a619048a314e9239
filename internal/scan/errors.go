package scan

import "errors"

// ErrScanAlreadyRunning is returned by Start when a scan is already in
// progress; only one scan runs at a time.
var ErrScanAlreadyRunning = errors.New("scan: a scan is already running")
