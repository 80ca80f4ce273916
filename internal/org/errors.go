package org

import "fmt"

// FormatError reports a structurally invalid or truncated resource.
type FormatError struct {
	Op  string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("org: invalid format: %s: %v", e.Op, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// RangeError reports a value outside its supported domain, such as a pitch
// whose octave is above 7 or an instrument id missing from the bank.
type RangeError struct {
	What  string
	Value int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("org: %s %d out of range", e.What, e.Value)
}

// ResourceError reports a missing or unreadable underlying file.
type ResourceError struct {
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("org: open %s: %v", e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
