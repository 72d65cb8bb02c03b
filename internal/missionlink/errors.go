package missionlink

import "errors"

// Error kinds MalformedFrame is defined in frame.go
// because Decode needs to construct it with a Reason.
//
// The five mismatch kinds (unexpected flag/operation, sequence, peer,
// identity) are not returned by this package's FSM: frames that hit
// them are discarded in place and the transfer keeps waiting.
var (
	// ErrUnexpectedFlag names a structurally valid frame arriving with
	// a flag that is not legal at the current FSM state.
	ErrUnexpectedFlag = errors.New("missionlink: unexpected flag")

	// ErrUnexpectedOperation names a frame whose operation tag is not
	// legal at the current point in the exchange.
	ErrUnexpectedOperation = errors.New("missionlink: unexpected operation")

	// ErrSequenceMismatch names a data frame whose sequence does not
	// equal the receiver's expected next sequence.
	ErrSequenceMismatch = errors.New("missionlink: sequence mismatch")

	// ErrPeerMismatch names a frame whose source address differs from
	// the transfer's established peer address.
	ErrPeerMismatch = errors.New("missionlink: peer address mismatch")

	// ErrIdentityMismatch names a frame whose mission-id differs from
	// the transfer's established mission-id.
	ErrIdentityMismatch = errors.New("missionlink: identity mismatch")

	// ErrTimeout is returned when no response arrives within the
	// configured receive timeout.
	ErrTimeout = errors.New("missionlink: timeout")

	// ErrPeerUnreachable is returned when a transfer's retry budget is
	// exhausted; the transfer is torn down and the error surfaced to
	// the caller, but the owning loop continues.
	ErrPeerUnreachable = errors.New("missionlink: peer unreachable, retries exhausted")

	// ErrProtocolInvariantViolation covers cases like a close arriving
	// before any data frame. Fatal to the transfer only.
	ErrProtocolInvariantViolation = errors.New("missionlink: protocol invariant violation")
)
