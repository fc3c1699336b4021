// Package domain contains core business types and interfaces.
//
// This file defines the reset session: the server-held record that threads
// the three-step forgot-password sequence together.
package domain

import (
	"time"
)

// =============================================================================
// Reset Session Configuration Constants
// =============================================================================

const (
	// ResetSessionDuration is how long a reset session stays usable after step 1.
	ResetSessionDuration = 15 * time.Minute

	// ResetTokenBytes is the number of random bytes in a continuation token.
	// 32 bytes = 256 bits, hex-encoded to 64 characters.
	ResetTokenBytes = 32
)

// ResetStep is a state of the forgot-password sequence.
type ResetStep string

const (
	ResetStepRequestEmail ResetStep = "request_email"
	ResetStepVerifyCode   ResetStep = "verify_code"
	ResetStepSetPassword  ResetStep = "set_password"
	ResetStepDone         ResetStep = "done"
)

// Next returns the step that follows s. Done is terminal.
func (s ResetStep) Next() ResetStep {
	switch s {
	case ResetStepRequestEmail:
		return ResetStepVerifyCode
	case ResetStepVerifyCode:
		return ResetStepSetPassword
	default:
		return ResetStepDone
	}
}

// Valid reports whether s is one of the known steps.
func (s ResetStep) Valid() bool {
	switch s {
	case ResetStepRequestEmail, ResetStepVerifyCode, ResetStepSetPassword, ResetStepDone:
		return true
	}
	return false
}

// ResetSession is the continuation proof for the forgot-password sequence.
//
// Security model:
//   - Raw token (64 hex chars) lives only in an HttpOnly cookie
//   - Only the SHA-256 hash of the token is stored
//   - The session remembers the email entered in step 1, so later steps never
//     fall back to whichever identity happened to be logged in
//   - Step records the step the holder is allowed to submit next
//   - InFlight is set while a backend call for this session is outstanding
type ResetSession struct {
	TokenHash string
	Email     string
	Step      ResetStep
	InFlight  bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Allows reports whether a submit for step is legal in the session's state.
func (s *ResetSession) Allows(step ResetStep) bool {
	return s.Step == step
}

// ResetStart is returned by the first step of the sequence.
type ResetStart struct {
	Token     string    // Raw continuation token (NOT the hash)
	ExpiresAt time.Time // When the session expires
}
