package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures at a component boundary
type ErrorKind string

const (
	KindNetwork           ErrorKind = "network"
	KindDecode            ErrorKind = "decode"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindConnection        ErrorKind = "connection"
	KindQueryFailed       ErrorKind = "query_failed"
	KindMissingCredential ErrorKind = "missing_credential"
)

// AuthError is returned by a TokenSource
type AuthError struct {
	Kind ErrorKind // KindNetwork or KindDecode
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s error: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// FetchError is returned by a DeviceSource
type FetchError struct {
	Kind ErrorKind // KindNetwork, KindDecode or KindUnauthorized
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s error: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError is returned by a DeviceWriter. Rows written before the failure are kept.
type WriteError struct {
	Kind     ErrorKind // KindConnection or KindQueryFailed
	DeviceID string    // empty for connection failures
	Code     string    // status code being written, if any
	Err      error
}

func (e *WriteError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("write %s error (device %s, status %s): %v", e.Kind, e.DeviceID, e.Code, e.Err)
	case e.DeviceID != "":
		return fmt.Sprintf("write %s error (device %s): %v", e.Kind, e.DeviceID, e.Err)
	default:
		return fmt.Sprintf("write %s error: %v", e.Kind, e.Err)
	}
}

func (e *WriteError) Unwrap() error { return e.Err }

// KindOf returns the kind of the tagged error in err's chain, or "" if there is none
func KindOf(err error) ErrorKind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	var writeErr *WriteError
	if errors.As(err, &writeErr) {
		return writeErr.Kind
	}
	return ""
}

// IsUnauthorized reports whether the vendor rejected the bearer token
func IsUnauthorized(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) && fetchErr.Kind == KindUnauthorized
}
