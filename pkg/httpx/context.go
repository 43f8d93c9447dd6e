package httpx

import "context"

type ctxKey string

const (
	// CtxKeySubject is the authenticated subject id extracted from the bearer token.
	CtxKeySubject ctxKey = "subject"
	// CtxKeyRole is the role claim carried by the token.
	CtxKeyRole ctxKey = "role"
)

// ContextWithSubject stores the authenticated subject and role claim.
func ContextWithSubject(ctx context.Context, subject, role string) context.Context {
	ctx = context.WithValue(ctx, CtxKeySubject, subject)
	return context.WithValue(ctx, CtxKeyRole, role)
}

// SubjectFromContext returns the authenticated subject id, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(CtxKeySubject).(string)
	return s, ok && s != ""
}
