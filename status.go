package cuvslam

import (
	"fmt"

	"github.com/pkg/errors"
)

// Status is the closed set of engine status codes. The numeric values match
// the native CUVSLAM_Status enumeration; zero is success.
type Status int

// All statuses the engine can report. Anything the native layer returns
// outside this range folds to StatusGenericError.
const (
	StatusSuccess Status = iota
	StatusTrackingLost
	StatusInvalidArg
	StatusCannotLocalize
	StatusGenericError
	StatusUnsupportedNumberOfCameras
	StatusSlamNotInitialized
	StatusNotImplemented
	StatusReadingSlamInternalsDisabled
)

// statusFromCode maps a raw native status code to a Status. The mapping is
// total: unrecognized codes become StatusGenericError, never a panic or an
// unchecked cast.
func statusFromCode(code int32) Status {
	if code < int32(StatusSuccess) || code > int32(StatusReadingSlamInternalsDisabled) {
		return StatusGenericError
	}
	return Status(code)
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusTrackingLost:
		return "tracking lost"
	case StatusInvalidArg:
		return "invalid argument"
	case StatusCannotLocalize:
		return "cannot localize"
	case StatusGenericError:
		return "generic error"
	case StatusUnsupportedNumberOfCameras:
		return "unsupported number of cameras"
	case StatusSlamNotInitialized:
		return "SLAM not initialized"
	case StatusNotImplemented:
		return "not implemented"
	case StatusReadingSlamInternalsDisabled:
		return "reading SLAM internals disabled"
	default:
		return fmt.Sprintf("unknown status %d", int(s))
	}
}

// Error lets a non-success Status travel as a typed error through ordinary
// error returns and pkg/errors wrapping.
func (s Status) Error() string {
	return "cuvslam: " + s.String()
}

// Recoverable reports whether a later Track call against the same session
// may succeed again. Tracking lost is the only recoverable engine status;
// everything else is fatal to the session.
func (s Status) Recoverable() bool {
	return s == StatusTrackingLost
}

// StatusOf extracts the engine Status from an error chain, if one is there.
// Binding-layer errors (empty rig, mismatched image count, closed session)
// carry no Status and report false.
func StatusOf(err error) (Status, bool) {
	var s Status
	if errors.As(err, &s) {
		return s, true
	}
	return StatusSuccess, false
}
