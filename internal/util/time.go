// Package util carries small ambient helpers in the style of the
// teacher's pkg/utils: time formatting and struct validation, generalized
// to the Unix-second/microsecond integers spec.md's data model requires
// instead of the teacher's RFC3339 strings.
package util

import "time"

// NowUnix returns the current time as Unix seconds, the unit spec.md
// section 3 specifies for createdAt/updatedAt/ttl.
func NowUnix() int64 { return time.Now().Unix() }

// NowUnixMicro returns the current time as Unix microseconds, the unit
// spec.md section 4.2 specifies for queue sort keys and lock/leader
// acquiredAt fencing tokens.
func NowUnixMicro() int64 { return time.Now().UnixMicro() }

// UnixToRFC3339 renders a Unix-second timestamp as RFC3339 for
// --verbose diagnostics, matching the teacher's pkg/utils/time.go
// formatting convention.
func UnixToRFC3339(unixSeconds int64) string {
	return time.Unix(unixSeconds, 0).UTC().Format(time.RFC3339)
}
