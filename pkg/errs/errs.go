// Package errs defines the error-class sentinels used across this
// module so that the CLI boundary can recover a taxonomy class with
// errors.Is and map it to the right exit code, independent of which
// stage produced the error.
package errs

import "errors"

// ErrConfiguration marks an invalid run configuration (bad tolerance,
// bad ratio, bad thread count) detected before any work starts.
var ErrConfiguration = errors.New("configuration error")

// ErrIO marks a failed read or write of a solid-set file or CSV pair
// list.
var ErrIO = errors.New("i/o error")

// ErrStructural marks a file that decoded but violates a structural
// invariant (zero shapes, malformed mesh, out-of-range pair index).
var ErrStructural = errors.New("structural error")

// ErrVolumeAnomaly marks a volume computation that fell outside what the
// negative-common-volume workaround tolerates, or a negative cut volume,
// which indicates a kernel or mesh defect rather than a geometry
// question.
var ErrVolumeAnomaly = errors.New("volume anomaly")
