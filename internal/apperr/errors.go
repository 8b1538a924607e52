// Package apperr defines the error taxonomy shared by every layer of the shop.
// Domain packages wrap these sentinels; the HTTP boundary maps them to status codes.
package apperr

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden access")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUpstream        = errors.New("upstream failure")
)

// Kind returns the taxonomy sentinel err belongs to, or ErrUpstream for
// anything unclassified (store, storage and driver errors).
func Kind(err error) error {
	for _, k := range []error{ErrInvalidInput, ErrUnauthenticated, ErrForbidden, ErrNotFound, ErrConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrUpstream
}
