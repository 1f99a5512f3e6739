package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/gofer/internal/domain"
)

type contextKey string

const ContextKeyUserID contextKey = "user_id"

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return v, ok
}

// IdentityFromContext is the request-scoped identity provider. It returns the
// zero Identity when the request carried no valid credentials.
func IdentityFromContext(ctx context.Context) domain.Identity {
	id, _ := UserIDFromContext(ctx)
	return domain.Identity{UserID: id}
}

// WithIdentity stores id in ctx the way Auth does.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, id.UserID)
}
