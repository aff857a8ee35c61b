package apperr

import "errors"

type Code string

const (
	CodeTransientFetch        Code = "TRANSIENT_FETCH"
	CodeResolutionUnavailable Code = "RESOLUTION_UNAVAILABLE"
	CodePersistence           Code = "PERSISTENCE"
	CodeInvariant             Code = "INVARIANT"
)

// ErrUnsupported is returned by optional collaborator capabilities that are not wired for
// the current network or configuration.
var ErrUnsupported = errors.New("operation not supported")
