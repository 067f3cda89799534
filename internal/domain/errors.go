package domain

import "errors"

// ErrNotFound is returned when the requested trip, stop, or resort does not
// exist — in the remote database for server-side code, or (on update/delete
// paths) in the local cache for the offline engine.
// Handlers map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation
// (e.g. missing trip name, check-out before check-in).
// Handlers map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrStorage is returned when the device-local cache fails at the I/O level.
// It is fatal to the current operation and is never silently swallowed;
// callers must not assume a partial multi-key write was rolled back.
var ErrStorage = errors.New("storage failure")

// ErrRemote is returned when a call to the remote backend fails at the
// network or server level. Offline-caused failures are recoverable by
// queueing; synchronous failures are surfaced to the caller.
var ErrRemote = errors.New("remote failure")
