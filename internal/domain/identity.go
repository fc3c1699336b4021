// Package domain contains core business types and interfaces.
//
// This file defines the Identity type: the user record the identity provider
// hands back after a successful sign-in or registration.
package domain

import "strings"

// Identity is a known user for one browser session.
//
// Identities are created after a successful login or registration and are
// kept per browser session. They carry no credentials; the identity provider
// and the backend API own everything else about the user.
type Identity struct {
	ID    string // Identity provider UID
	Name  string // Display name, may be empty
	Email string
}

// DisplayName returns the identity's name or email if name is empty.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Email
}

// SplitName splits a provider display name into first and last name.
// The first space separates the two; a single word yields an empty last name.
func SplitName(displayName string) (first, last string) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return "", ""
	}
	first, last, _ = strings.Cut(displayName, " ")
	return first, strings.TrimSpace(last)
}

// =============================================================================
// Service Parameters
// =============================================================================

// RegisterParams contains parameters for registering a new account.
type RegisterParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// FullName joins first and last name for the identity record.
func (p RegisterParams) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
