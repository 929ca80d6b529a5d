// Package app contains the application services that tie the domain rules to
// the stores and the payment provider. All business logic lives in domain/;
// services here orchestrate I/O at the edges via injected ports.
package app

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a service error so the HTTP layer can pick a status
// code without inspecting messages.
type ErrorKind int

const (
	KindValidation ErrorKind = iota // malformed or missing request fields
	KindNotFound                    // restaurant, campaign, or subscription absent
	KindConflict                    // operation does not apply to current state
	KindUpstream                    // payment provider call failed
	KindSignature                   // webhook signature rejected
)

// Error is a classified service error. The message is safe to surface to the
// caller verbatim.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the classification from an error chain. Unclassified errors
// count as upstream failures.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

func validationErr(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFoundErr(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func conflictErr(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func upstreamErr(msg string, err error) error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

func signatureErr(err error) error {
	return &Error{Kind: KindSignature, Msg: "invalid webhook signature", Err: err}
}
