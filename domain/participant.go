// Package domain contains core concepts of the support chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "strings"

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAgent    Role = "AGENT"
	RoleAdmin    Role = "ADMIN"
)

// Participant is a customer, agent, or admin known to the Directory.
// Guests are ephemeral customers created on first contact; they carry
// no credential and authenticate nothing.
type Participant struct {
	ID        string
	Username  string
	Email     string
	Role      Role
	Available bool
	Guest     bool
}

// IsAgent reports whether the participant can be assigned to sessions.
func (p Participant) IsAgent() bool {
	return p.Role == RoleAgent
}

// GuestSlug derives the topic-safe identifier used to address a guest.
// Guests have no stable login identity, so they are addressed by a slug
// of their display name with whitespace runs replaced by underscores.
func GuestSlug(nickname string) string {
	return "guest-" + strings.Join(strings.Fields(nickname), "_")
}
