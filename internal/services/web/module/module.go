// Package module defines the feature contract used by web composition.
package module

import "net/http"

// ResolveLanguage returns the effective request language.
type ResolveLanguage func(*http.Request) string

// ResolveSignedIn reports whether the request carries a live session.
type ResolveSignedIn func(*http.Request) bool

// Dependencies carries request-scoped resolvers shared by page rendering.
type Dependencies struct {
	ResolveLanguage ResolveLanguage
	ResolveSignedIn ResolveSignedIn
}

// Mount describes a module route mount.
type Mount struct {
	Prefix  string
	Handler http.Handler
}

// Module declares the minimum contract required by web composition.
type Module interface {
	ID() string
	Mount() (Mount, error)
}
