package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"helpdesk/domain"
)

func TestTokens_GenerateAndValidate(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("unit-test-secret", time.Hour)

	agent := domain.Participant{
		ID:       "agent-1",
		Username: "alice",
		Role:     domain.RoleAgent,
	}

	signed, err := tokens.Generate(agent)
	req.NoError(err)
	req.NotEmpty(signed)

	claims, err := tokens.Validate(signed)
	req.NoError(err)
	req.Equal("agent-1", claims.UserID)
	req.Equal("alice", claims.Username)
	req.Equal(domain.RoleAgent, claims.Role)
	req.Equal("helpdesk", claims.Issuer)
}

func TestTokens_Validate_WrongSecret(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("unit-test-secret", time.Hour)
	others := NewTokens("another-secret", time.Hour)

	signed, err := tokens.Generate(domain.Participant{Username: "alice", Role: domain.RoleAgent})
	req.NoError(err)

	_, err = others.Validate(signed)
	req.Error(err)
}

func TestTokens_Validate_Expired(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("unit-test-secret", -time.Minute)

	signed, err := tokens.Generate(domain.Participant{Username: "alice", Role: domain.RoleAgent})
	req.NoError(err)

	_, err = tokens.Validate(signed)
	req.Error(err)
}

func TestTokens_Validate_Garbage(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("unit-test-secret", time.Hour)

	_, err := tokens.Validate("not.a.token")
	req.Error(err)
}
