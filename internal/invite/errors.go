package invite

import (
	"errors"

	"rentlink/internal/api"
)

// FailureKind is the error taxonomy surfaced to the user. Each kind gets
// distinct copy in the UI.
type FailureKind string

const (
	FailNone FailureKind = ""
	// FailMalformed: no token could be resolved from any source.
	FailMalformed FailureKind = "malformed"
	// FailExpired: the token's time window passed.
	FailExpired FailureKind = "expired"
	// FailRevoked: the issuer cancelled the token.
	FailRevoked FailureKind = "revoked"
	// FailCapacityReached: a single-use or N-use token is exhausted.
	FailCapacityReached FailureKind = "capacity_reached"
	// FailNotFound: the authority has no record of the token.
	FailNotFound FailureKind = "not_found"
	// FailMismatch: the resolved property disagrees with the expected
	// property carried alongside the token. Possible tampering or a stale
	// link; unrecoverable.
	FailMismatch FailureKind = "mismatch"
	// FailWrongAccount: the signed-in email differs from the intended
	// recipient. Recoverable; the user may switch accounts or continue.
	FailWrongAccount FailureKind = "wrong_account"
	// FailNetwork: transport failure or timeout with no usable cache.
	FailNetwork FailureKind = "network"
	// FailGeneric: any other remote-reported failure during accept.
	FailGeneric FailureKind = "generic"
)

// Retryable reports whether a failure leaves the flow resumable. Retryable
// acceptance failures re-arm the pending invite record; unrecoverable ones
// clear it.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailNetwork, FailGeneric, FailWrongAccount:
		return true
	}
	return false
}

// failureFromCode maps the authority's validation error codes onto the
// taxonomy. Unknown codes count as generic so a new server-side code never
// bricks the client.
func failureFromCode(code string) FailureKind {
	switch code {
	case "expired":
		return FailExpired
	case "revoked":
		return FailRevoked
	case "capacity_reached":
		return FailCapacityReached
	case "not_found":
		return FailNotFound
	case "malformed":
		return FailMalformed
	default:
		return FailGeneric
	}
}

func failureFromError(err error) FailureKind {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 {
			return FailNetwork
		}
		return failureFromCode(apiErr.Code)
	}
	return FailNetwork
}

// retryableCall reports whether a failed remote call is worth repeating:
// transport errors and server-side 5xx responses are, remote verdicts are
// not.
func retryableCall(err error) bool {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return true
}
