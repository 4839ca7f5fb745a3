// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Failure taxonomy shared across pipeline stages. External-call failures are
// converted to one of these at the component boundary and recorded as status
// on the affected entity; they never unwind past it.
var (
	// ErrProviderUnavailable marks a transient external-service failure that
	// survived bounded retries. Callers degrade rather than abort.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrRateLimited marks a request rejected by a provider's rate limit
	// after backoff was exhausted.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotAvailable marks an artifact a route cannot provide. The caller
	// moves on to the next strategy.
	ErrNotAvailable = errors.New("artifact not available")

	// ErrAuthoritativeUnavailable marks a confirmed negative from the party
	// that owns the artifact (e.g. publisher paywall, no such resource).
	// Remaining strategies are pointless and are skipped.
	ErrAuthoritativeUnavailable = errors.New("artifact authoritatively unavailable")

	// ErrMalformedOutput marks an LLM response that failed schema validation.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrAutomationFailure marks a browser-automation attempt that failed.
	ErrAutomationFailure = errors.New("browser automation failure")

	// ErrCorruptSession marks a persisted session whose payload failed
	// verification. Stores treat it as "session not found".
	ErrCorruptSession = errors.New("corrupt session payload")
)

// IsAuthoritative reports whether err is a confirmed negative that must
// short-circuit any remaining retrieval strategies for the record.
func IsAuthoritative(err error) bool {
	return errors.Is(err, ErrAuthoritativeUnavailable)
}

// IsTransient reports whether err is worth retrying through a different
// strategy or a later run.
func IsTransient(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrAutomationFailure)
}
