package security

import (
	"context"
	"strings"

	"harvest-wallet-backend/internal/domain"
)

type callerKey struct{}

// WithCaller attaches a verified caller to ctx.
func WithCaller(ctx context.Context, caller domain.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the caller attached by WithCaller, if any.
func CallerFromContext(ctx context.Context) (domain.Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(domain.Caller)
	if !ok || caller.UID == "" {
		return domain.Caller{}, false
	}
	return caller, true
}

// RequireCaller is the authorization gate every ledger operation passes
// before touching storage.
func RequireCaller(ctx context.Context) (domain.Caller, error) {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return domain.Caller{}, domain.Unauthenticated(domain.ErrMissingCaller)
	}
	return caller, nil
}

// BearerToken strips an optional "Bearer " prefix from an authorization header.
func BearerToken(header string) string {
	if len(header) > 7 && strings.ToUpper(header[0:7]) == "BEARER " {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(header)
}
