package scheduler

import "errors"

// ErrPermissionDenied reports that the platform refused an exact timer. The
// alarm stays logically scheduled and is re-armed by the next successful refresh.
var ErrPermissionDenied = errors.New("exact timer permission denied")
