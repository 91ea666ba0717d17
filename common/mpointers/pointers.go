// Package mpointers provides small helpers for taking the address of a
// value in a single expression, for call sites that need a pointer to a
// literal or a loop variable.
package mpointers

import "time"

// String returns a pointer to s.
func String(s string) *string {
	return &s
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

// Time returns a pointer to t.
func Time(t time.Time) *time.Time {
	return &t
}

// Int64 returns a pointer to i.
func Int64(i int64) *int64 {
	return &i
}

// Int returns a pointer to i.
func Int(i int) *int {
	return &i
}
