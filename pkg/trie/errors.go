// pkg/trie/errors.go
package trie

import "errors"

var (
	// ErrClosed is returned by Trie.CloseErr once the Trie has been Closed.
	ErrClosed = errors.New("trie: closed")
)

// Status reports the outcome of a Try* operation that did not return a
// value reference. Retry is a cooperative restart signal, not an error:
// an optimistic descent raced a concurrent prune and must be retried from
// the root. It is never returned wrapped in an error, the plain
// Insert/Remove wrappers loop on it internally, and Get never reports
// it, so ordinary callers never see it.
type Status uint8

const (
	// StatusOK indicates the operation completed and returned a value.
	StatusOK Status = iota
	// StatusNotFound indicates the key (or a prefix of it) is absent.
	StatusNotFound
	// StatusRetry indicates the descent raced a concurrent prune; the
	// caller must restart the operation from the root.
	StatusRetry
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNotFound:
		return "NotFound"
	case StatusRetry:
		return "Retry"
	default:
		return "Unknown"
	}
}
