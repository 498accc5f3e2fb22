package auth

import (
	"context"

	"github.com/dukerupert/chorechart/internal/model"
)

type contextKey struct{}

// AuthContext identifies the participant behind a request.
type AuthContext struct {
	Participant model.Participant
	SessionID   int64
	Admin       bool
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// Participant returns the authenticated participant, or "" if none.
func Participant(ctx context.Context) model.Participant {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.Participant
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Admin
}
