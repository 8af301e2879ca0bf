// Package errors provides error handling utilities for tracegen.
//
// This file contains panic recovery used at the group-processing boundary:
// a panic inside one group's extraction, synthesis or validation becomes an
// ordinary error for that group and never aborts the batch.

package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// PanicError is a recovered panic.
type PanicError struct {
	// PanicValue is the value passed to panic().
	PanicValue interface{}

	// StackTrace is the goroutine stack at recovery time.
	StackTrace string

	// Operation names the recovered operation, usually "<stage> group <id>".
	Operation string

	// Cause is the error the function had already set when it panicked.
	Cause error
}

func (e *PanicError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("panic in %s: %v (original error: %v)", e.Operation, e.PanicValue, e.Cause)
	}
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// String includes the stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("%s\nStack trace:\n%s", e.Error(), e.StackTrace)
}

func (e *PanicError) Unwrap() error {
	return e.Cause
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PanicError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Str("panic", fmt.Sprint(e.PanicValue)).
		Str("type", "PanicError")
}

// NewPanicError captures the current stack for a recovered value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover turns a panic into a *PanicError stored in *err. Use with defer:
//
//	func processGroup() (err error) {
//	    defer Recover(&err, "simulate group "+id)
//	    ...
//	}
//
// An error already stored in *err becomes the PanicError's Cause.
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	p := NewPanicError(operation, r)
	p.Cause = *err
	*err = p
}

// SafeExecute runs fn, converting a panic into a *PanicError.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
