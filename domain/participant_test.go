package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuestSlug(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		name     string
		nickname string
		expected string
	}{
		{"simple nickname", "Bob", "guest-Bob"},
		{"spaces become underscores", "Bob Smith", "guest-Bob_Smith"},
		{"runs of whitespace collapse", "Bob \t  Smith", "guest-Bob_Smith"},
		{"leading and trailing space trimmed", "  Bob ", "guest-Bob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Equal(tt.expected, GuestSlug(tt.nickname))
		})
	}
}

func TestSessionAssignedTo(t *testing.T) {
	req := require.New(t)

	agent := Participant{ID: "a1", Username: "alice", Role: RoleAgent}
	s := Session{Status: StatusActive, Agent: &agent}

	req.True(s.AssignedTo("a1"))
	req.False(s.AssignedTo("a2"))
	req.False(Session{Status: StatusWaiting}.AssignedTo("a1"))
}
