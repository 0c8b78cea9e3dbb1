package workflow

import (
	"github.com/pkg/errors"
)

// Error kinds surfaced by Apply. Callers match with errors.Cause; none of
// these is ever fatal to the event loop.
var (
	// ErrStale rejects an action against a session no longer in the state the
	// action expects (lost claim race, decision on an already resolved
	// session).
	ErrStale = errors.New("stale action")

	// ErrMalformedCode rejects a code of the wrong length or with non-digit
	// characters.
	ErrMalformedCode = errors.New("malformed code")

	// ErrEvidenceMissing rejects a code submitted before any evidence.
	ErrEvidenceMissing = errors.New("evidence missing")

	// ErrEvidenceSet rejects a second evidence submission on the same claim.
	ErrEvidenceSet = errors.New("evidence already set")
)

func IsStale(err error) bool {
	return errors.Cause(err) == ErrStale
}
