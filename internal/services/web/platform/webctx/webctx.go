// Package webctx provides shared web request context helpers.
package webctx

import (
	"context"

	webstorage "github.com/louisbranch/ocfweb/internal/services/web/storage"
)

type sessionKey struct{}

// WithSession returns ctx carrying the signed-in session.
func WithSession(ctx context.Context, session webstorage.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// Session returns the signed-in session carried by ctx.
func Session(ctx context.Context) (webstorage.Session, bool) {
	if ctx == nil {
		return webstorage.Session{}, false
	}
	session, ok := ctx.Value(sessionKey{}).(webstorage.Session)
	return session, ok && session.ID != ""
}
