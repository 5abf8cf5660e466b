// Package agent holds the device-side pieces of the punch lifecycle: the
// durable pending queue, the API client, the capture flow and the sync
// engine. The sentinel errors here are the shared failure taxonomy; callers
// branch on them with errors.Is.
package agent

import "errors"

var (
	// ErrCapture means a capture precondition (geolocation) was
	// unavailable. The punch was never created; the user has to retry.
	ErrCapture = errors.New("capture precondition unavailable")

	// ErrTransport means the punch store could not be reached or answered
	// with a server error. Recoverable; the record falls back to the
	// pending queue.
	ErrTransport = errors.New("punch store unreachable")

	// ErrStorage means the local durable queue is unusable. Fatal to the
	// current operation and escalated to the user, since the punch risks
	// being lost.
	ErrStorage = errors.New("local punch storage unavailable")

	// ErrRejected means the store returned a validation error. The record
	// is malformed and retrying would repeat the rejection, so it is
	// dropped from the retry path.
	ErrRejected = errors.New("punch rejected by server")

	// ErrDoublePunch means the requested punch type equals the employee's
	// current status. Guarded before the punch reaches the queue or the
	// store.
	ErrDoublePunch = errors.New("punch type matches current status")
)
