package workflow

import "strings"

// Button payload grammar. Payloads travel opaque through the transport and
// come back on button presses.
const (
	payloadClaimPrefix = "claim_"
	payloadPassPrefix  = "verdict_pass_"
	payloadFailPrefix  = "verdict_fail_"

	// PayloadCancel aborts an authoring dialogue.
	PayloadCancel = "authoring_cancel"
)

func PayloadClaim(id string) string { return payloadClaimPrefix + id }
func PayloadPass(id string) string  { return payloadPassPrefix + id }
func PayloadFail(id string) string  { return payloadFailPrefix + id }

// ParsePayload splits a button payload into the action kind it requests and
// the target session id. ok is false for unrecognized payloads and for
// PayloadCancel, which is not a session action.
func ParsePayload(data string) (kind ActionKind, id string, ok bool) {
	switch {
	case strings.HasPrefix(data, payloadPassPrefix):
		return ActionResolvePass, data[len(payloadPassPrefix):], true
	case strings.HasPrefix(data, payloadFailPrefix):
		return ActionResolveFail, data[len(payloadFailPrefix):], true
	case strings.HasPrefix(data, payloadClaimPrefix):
		return ActionClaim, data[len(payloadClaimPrefix):], true
	default:
		return 0, "", false
	}
}
