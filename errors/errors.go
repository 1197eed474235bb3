package errors

import "fmt"

var (
	ErrSessionNotFound     = fmt.Errorf("chat session not found")
	ErrParticipantNotFound = fmt.Errorf("participant not found")
	ErrAgentRoleRequired   = fmt.Errorf("only agents can perform this action")
	ErrSessionClaimed      = fmt.Errorf("chat session is already assigned to another agent")
	ErrSessionClosed       = fmt.Errorf("chat session is closed")
	ErrSessionNotWaiting   = fmt.Errorf("chat session is not in waiting status")
	ErrNicknameTaken       = fmt.Errorf("nickname belongs to a registered user")
	ErrInvalidPayload      = fmt.Errorf("invalid payload")
	ErrWorkerPanic         = fmt.Errorf("worker panic")
)
