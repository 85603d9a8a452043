package auth

import "context"

type contextKey struct{}

// Identity is the authenticated caller, established once per session.
type Identity struct {
	SubjectID   int64  `json:"subject_id"`
	DisplayName string `json:"display_name"`
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// SubjectID returns the caller's subject id, or 0 without a session.
func SubjectID(ctx context.Context) int64 {
	id, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return id.SubjectID
}
